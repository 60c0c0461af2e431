package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/schedsim/internal/config"
	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/pkg/model"
)

// Version is the schedsim release, overridable with -ldflags.
var Version = "0.3.0-dev"

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInput    = 2 // parse or validation error
	ExitInternal = 3 // engine invariant violated
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	cfg    config.SimConfig
)

// NewRootCmd creates the root cobra command for the schedsim CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "schedsim",
		Short:   "schedsim - preemptive priority CPU scheduler simulator",
		Long:    "schedsim simulates priority scheduling with round-robin quanta, aging, resource requests, I/O and deadlock recovery.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				loaded.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				loaded.LogFormat = flagLogFormat
			}
			if flagDebug {
				loaded.LogLevel = "debug"
			}
			cfg = loaded
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "auto", "Log format (text, json, auto)")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the schedsim version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schedsim %s\n", Version)
		},
	}
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrParse), errors.Is(err, model.ErrValidation):
		return ExitInput
	case errors.Is(err, model.ErrInvariant):
		return ExitInternal
	}
	return ExitFailure
}

// Describe renders err for the terminal, listing every validation problem.
func Describe(err error) string {
	var verr *model.Error
	if !errors.As(err, &verr) || len(verr.Details) == 0 {
		return "Error: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s", err)
	for _, d := range verr.Details {
		fmt.Fprintf(&b, "\n  - %s", d)
	}
	return b.String()
}
