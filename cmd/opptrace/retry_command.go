package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opptrace/internal/daemonctl"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run failed items for one stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				ack, err := client.Retry(cmd.Context(), stage)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retry of %s stage scheduled for generation %s\n", stage, ack.Generation)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "Stage to retry: fetch or score")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}
