package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaqc/internal/api"
)

func newStuckCommand(ctx *commandContext) *cobra.Command {
	stuckCmd := &cobra.Command{
		Use:   "stuck",
		Short: "Recover jobs that stopped making progress",
	}

	stuckCmd.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Requeue every job past its stuck threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.ReconcileResponse
			if err := client.post(cmd.Context(), "/api/stuck/retry", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Examined %d stuck jobs, requeued %d\n", resp.Examined, resp.Requeued)
			return nil
		},
	})

	stuckCmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel every job past its stuck threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.ReconcileResponse
			if err := client.post(cmd.Context(), "/api/stuck/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Examined %d stuck jobs, cancelled %d\n", resp.Examined, resp.Cancelled)
			return nil
		},
	})

	return stuckCmd
}
