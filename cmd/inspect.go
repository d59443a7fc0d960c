// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pitchmidi/internal/midi"
	"pitchmidi/internal/pitch"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.mid>",
		Short: "List the notes in a MIDI file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			decoded, err := midi.Inspect(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := c.OutOrStdout()
			fmt.Fprintf(out, "%s: %d track(s), %d ticks per quarter, %d notes\n",
				args[0], decoded.Tracks, decoded.Resolution, len(decoded.Notes))
			if len(decoded.Notes) == 0 {
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NOTE\tKEY\tVEL\tSTART\tEND")
			for _, n := range decoded.Notes {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%.3f\n",
					pitch.NoteName(int(n.Key)), n.Key, n.Velocity, n.Start, n.End)
			}
			return tw.Flush()
		},
	}
}
