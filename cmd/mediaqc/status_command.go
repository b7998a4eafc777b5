package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mediaqc/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var status api.DaemonStatus
			if err := client.get(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			running := "stopped"
			if status.Running {
				running = fmt.Sprintf("running (pid %d)", status.PID)
			}
			fmt.Fprintf(out, "Daemon:    %s\n", running)
			fmt.Fprintf(out, "Queue DB:  %s\n", status.QueueDBPath)
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			if health := status.Health; health != nil {
				fmt.Fprintf(out, "Jobs:      %d total, %d active\n",
					health.Total, health.Queued+health.Running+health.Paused)
			}

			if len(status.QueueStats) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			statuses := make([]string, 0, len(status.QueueStats))
			for status := range status.QueueStats {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)

			rows := make([][]string, 0, len(statuses))
			for _, name := range statuses {
				rows = append(rows, []string{
					statusLabel(name),
					fmt.Sprintf("%d", status.QueueStats[name]),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Jobs"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
