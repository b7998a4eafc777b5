package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaqc/internal/api"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Trigger a dispatch pass over queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.DispatchResponse
			if err := client.post(cmd.Context(), "/api/dispatch", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d jobs (%d failed)\n", resp.Processed, resp.Errors)
			return nil
		},
	}
}
