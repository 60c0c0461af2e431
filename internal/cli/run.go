package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/schedsim/internal/observability"
	"github.com/me/schedsim/internal/parser"
	"github.com/me/schedsim/internal/report"
	"github.com/me/schedsim/internal/scheduler"
	"github.com/me/schedsim/pkg/model"
)

func newRunCmd() *cobra.Command {
	var (
		format         string
		quantum        int
		agingThreshold int
		maxPriority    int
		maxTicks       int
		traceExporter  string
	)

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Simulate a scenario and print the report",
		Long: `Parses and validates the scenario, runs the scheduler until every task has
finished or been terminated, and writes the report to stdout.

Scenario files use either the line format

  [1, 1], [2, 1]
  1 0 0 CPU {R[1,1], 5, R[2,1], 5}

or YAML (see testdata/scenarios/mixed.yaml).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg
			flags := cmd.Flags()
			if flags.Changed("format") {
				c.OutputFormat = format
			}
			if flags.Changed("quantum") {
				c.TimeQuantum = quantum
			}
			if flags.Changed("aging-threshold") {
				c.AgingThreshold = agingThreshold
			}
			if flags.Changed("max-priority") {
				c.MaxPriority = maxPriority
			}
			if flags.Changed("max-ticks") {
				c.MaxTicks = maxTicks
			}
			if flags.Changed("trace") {
				c.TraceExporter = traceExporter
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			outFormat, err := report.ParseFormat(c.OutputFormat)
			if err != nil {
				return err
			}

			sc, err := loadScenario(args[0], c.MaxPriority)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Spans go to stderr so they never mix with the report.
			shutdown, err := observability.InitTracing(c.TraceExporter, "schedsim", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Warn("trace shutdown failed", "error", err)
				}
			}()

			engine, err := scheduler.NewEngine(sc, c.Scheduler(), logger)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", args[0], err)
			}
			res, err := engine.Run(ctx)
			if err != nil {
				return fmt.Errorf("simulate %s: %w", args[0], err)
			}
			return report.Render(cmd.OutOrStdout(), res, outFormat)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "text", "Report format (text, json, yaml)")
	cmd.Flags().IntVar(&quantum, "quantum", 5, "Time quantum in ticks")
	cmd.Flags().IntVar(&agingThreshold, "aging-threshold", 10, "Ready ticks before a task is promoted one level")
	cmd.Flags().IntVar(&maxPriority, "max-priority", 20, "Lowest priority level (0 is highest)")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 1_000_000, "Abort with an internal error after this many ticks (0 disables)")
	cmd.Flags().StringVar(&traceExporter, "trace", "none", "Trace exporter (none, stdout)")

	return cmd
}

// loadScenario parses and validates the scenario at path.
func loadScenario(path string, maxPriority int) (*model.Scenario, error) {
	sc, err := parser.New(logger).ParseFile(path)
	if err != nil {
		return nil, err
	}
	if verr := parser.NewValidator(logger).Validate(sc, maxPriority); verr != nil {
		return nil, fmt.Errorf("%s: %w", path, verr)
	}
	return sc, nil
}
