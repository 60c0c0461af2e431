package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var maxPriority int

	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := cfg.MaxPriority
			if cmd.Flags().Changed("max-priority") {
				limit = maxPriority
			}
			for _, path := range args {
				sc, err := loadScenario(path, limit)
				if err != nil {
					return err
				}
				bursts, ticks := 0, 0
				for _, t := range sc.Tasks {
					bursts += len(t.Bursts)
					for _, b := range t.Bursts {
						ticks += b.Duration
						for _, a := range b.Actions {
							ticks += a.Duration
						}
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %s: %d resources, %d tasks, %s bursts, %s ticks of work\n",
					path, len(sc.Resources), len(sc.Tasks), humanize.Comma(int64(bursts)), humanize.Comma(int64(ticks)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPriority, "max-priority", 20, "Lowest priority level (0 is highest)")
	return cmd
}
