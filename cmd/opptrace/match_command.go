package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opptrace/internal/daemonctl"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "match <image>",
		Short: "Match a photo against the current batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			encoded := base64.StdEncoding.EncodeToString(data)

			return ctx.withClient(func(client *daemonctl.Client) error {
				view, err := client.Match(cmd.Context(), encoded, minConfidence)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !view.Matched {
					fmt.Fprintln(out, "No attendee matched.")
					return nil
				}
				name := ""
				identity := ""
				if view.Attendee != nil {
					name = view.Attendee.DisplayName
					identity = view.Attendee.Identity
				}
				fmt.Fprintf(out, "Matched %s (%s)\n", name, identity)
				fmt.Fprintf(out, "Confidence: %.2f  Distance: %.2f  Verified: %s\n", view.Confidence, view.Distance, yesNo(view.Verified))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Override the minimum match confidence")
	return cmd
}
