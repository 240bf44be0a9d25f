package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration file and check the broadcast timing
and role settings without starting anything.

Example:
  pawr-sim validate --config pawr.yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b := cfg.Coordinator.Broadcast
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration OK")
			fmt.Fprintf(out, "  Interval:  %s\n", b.Interval())
			fmt.Fprintf(out, "  Subevents: %d x %d response slots\n", b.NumSubevents, b.NumResponseSlots)
			fmt.Fprintf(out, "  Capacity:  %d nodes\n", b.Capacity())
			return nil
		},
	}
}
