package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opptrace/internal/daemonctl"
	"opptrace/internal/ingest"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <batch.json>",
		Short: "Submit an attendee batch for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate locally so a malformed file fails before touching
			// the daemon.
			batch, err := ingest.ParseFile(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}

			return ctx.withClient(func(client *daemonctl.Client) error {
				ack, err := client.Enrich(cmd.Context(), data)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if ack.Scheduled {
					fmt.Fprintf(out, "Scheduled enrichment of %d attendees from %s\n", len(batch.Attendees), batch.SourceReference)
				} else {
					fmt.Fprintf(out, "A run for %s is already active\n", batch.SourceReference)
				}
				fmt.Fprintf(out, "Generation: %s\n", ack.Generation)
				fmt.Fprintln(out, "Poll progress with `opptrace status`.")
				return nil
			})
		},
	}
}
