// Command pawr-log views and analyzes PAwR protocol trace files.
//
// Trace files are written by pawr-sim when run with the --trace flag.
//
// Usage:
//
//	pawr-log <command> [flags] <file.plog>
//
// Examples:
//
//	# View only wire-layer events
//	pawr-log view --layer wire sim.plog
//
//	# Readings of one node
//	pawr-log view --coordinate 2/7 sim.plog
//
//	# Export to CSV
//	pawr-log export --format csv -o sim.csv sim.plog
//
//	# Keep one commissioning session
//	pawr-log filter --conn-id c0ffee00-... -o session.plog sim.plog
//
//	# Show statistics
//	pawr-log stats sim.plog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esl-mosaic/pawr-go/cmd/pawr-log/commands"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pawr-log",
		Short: "PAwR protocol trace analyzer",
	}

	cmd.AddCommand(newViewCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newFilterCommand())
	cmd.AddCommand(newStatsCommand())

	return cmd
}

func newViewCommand() *cobra.Command {
	var layer, direction, category, coordinate string

	cmd := &cobra.Command{
		Use:   "view <file.plog>",
		Short: "View trace file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			filter := commands.ViewFilter{Coordinate: coordinate}
			if layer != "" {
				l, err := commands.ParseLayer(layer)
				if err != nil {
					return err
				}
				filter.Layer = &l
			}
			if direction != "" {
				d, err := commands.ParseDirection(direction)
				if err != nil {
					return err
				}
				filter.Direction = &d
			}
			if category != "" {
				c, err := commands.ParseCategory(category)
				if err != nil {
					return err
				}
				filter.Category = &c
			}

			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "", "filter by layer (radio, wire, service)")
	cmd.Flags().StringVar(&direction, "direction", "", "filter by direction (in, out)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category (message, control, state, error)")
	cmd.Flags().StringVar(&coordinate, "coordinate", "", "filter by slot coordinate (subevent/slot)")

	return cmd
}

func newExportCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <file.plog>",
		Short: "Export trace file to JSONL or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return commands.RunExport(args[0], format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", "jsonl", "output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func newFilterCommand() *cobra.Command {
	var opts commands.FilterOptions

	cmd := &cobra.Command{
		Use:   "filter <file.plog>",
		Short: "Filter trace file and write matching events to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Output == "" {
				return fmt.Errorf("--output is required")
			}
			cmd.SilenceUsage = true

			n, err := commands.RunFilter(args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", n, opts.Output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Output, "output", "o", "", "output trace file")
	f.StringVar(&opts.ConnID, "conn-id", "", "filter by connection ID")
	f.StringVar(&opts.Peer, "peer", "", "filter by peer address")
	f.StringVar(&opts.Coordinate, "coordinate", "", "filter by slot coordinate (subevent/slot)")
	f.StringVar(&opts.Subevent, "subevent", "", "filter by subevent number")
	f.StringVar(&opts.TimeStart, "time-start", "", "events at or after this time (RFC3339)")
	f.StringVar(&opts.TimeEnd, "time-end", "", "events before this time (RFC3339)")
	f.StringVar(&opts.Layer, "layer", "", "filter by layer (radio, wire, service)")
	f.StringVar(&opts.Direction, "direction", "", "filter by direction (in, out)")
	f.StringVar(&opts.Category, "category", "", "filter by category (message, control, state, error)")

	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.plog>",
		Short: "Show statistics about the trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
