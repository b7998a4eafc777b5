package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaqc/internal/api"
	"mediaqc/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage QC jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsAddCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsProgressCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue database",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path := "/api/jobs"
			if all {
				path += "?all=true"
			}
			var resp api.ClearResponse
			if err := client.delete(cmd.Context(), path, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", resp.Removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove queued and running jobs")
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var orgFilter string
	var olderThanMinutes int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by status, organization, or age",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			for _, value := range statusFilters {
				if _, ok := queue.ParseStatus(value); !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				query.Add("status", strings.ToLower(strings.TrimSpace(value)))
			}
			if strings.TrimSpace(orgFilter) != "" {
				query.Set("org", strings.TrimSpace(orgFilter))
			}
			if olderThanMinutes > 0 {
				if strings.TrimSpace(orgFilter) == "" {
					return errors.New("--older-than requires --org")
				}
				query.Set("older_than_minutes", strconv.Itoa(olderThanMinutes))
			}
			path := "/api/jobs"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var resp api.JobListResponse
			if err := client.get(cmd.Context(), path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				rows = append(rows, []string{
					shortID(job.ID),
					job.OrgID,
					orDash(job.FileName),
					job.QCType,
					statusLabel(job.Status),
					progressLabel(job.Progress),
					relativeTime(job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Org", "File", "Type", "Status", "Progress", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&orgFilter, "org", "", "Filter by organization")
	cmd.Flags().IntVar(&olderThanMinutes, "older-than", 0, "Only jobs created more than this many minutes ago")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var showResult bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.JobResponse
			if err := client.get(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			job := resp.Job

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", job.ID)
			fmt.Fprintf(out, "Org:         %s\n", job.OrgID)
			fmt.Fprintf(out, "Project:     %s\n", job.ProjectID)
			fmt.Fprintf(out, "Delivery:    %s\n", orDash(job.DeliveryID))
			fmt.Fprintf(out, "Source:      %s (%s)\n", job.SourcePath, job.SourceType)
			fmt.Fprintf(out, "File:        %s\n", orDash(job.FileName))
			fmt.Fprintf(out, "QC type:     %s\n", job.QCType)
			fmt.Fprintf(out, "Status:      %s\n", statusLabel(job.Status))
			fmt.Fprintf(out, "Progress:    %s\n", progressLabel(job.Progress))
			fmt.Fprintf(out, "Attempts:    %d\n", job.Attempts)
			fmt.Fprintf(out, "Created:     %s (%s)\n", absoluteTime(job.CreatedAt), relativeTime(job.CreatedAt))
			fmt.Fprintf(out, "Started:     %s\n", absoluteTime(job.StartedAt))
			fmt.Fprintf(out, "Completed:   %s\n", absoluteTime(job.CompletedAt))
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
			}
			if showResult && len(job.Result) > 0 {
				fmt.Fprintf(out, "Result:\n%s\n", string(job.Result))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showResult, "result", false, "Include the raw QC report JSON")
	return cmd
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var req api.SubmitRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a new QC job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.JobResponse
			if err := client.post(cmd.Context(), "/api/jobs", req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%s, %s)\n",
				resp.Job.ID, resp.Job.QCType, statusLabel(resp.Job.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.OrgID, "org", "", "Organization identifier")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project identifier")
	cmd.Flags().StringVar(&req.DeliveryID, "delivery", "", "Delivery identifier")
	cmd.Flags().StringVar(&req.SourceType, "source-type", "upload", "Source type (upload or drive_link)")
	cmd.Flags().StringVar(&req.SourcePath, "path", "", "Source path or URL")
	cmd.Flags().StringVar(&req.FileName, "file-name", "", "Display file name")
	cmd.Flags().StringVar(&req.QCType, "qc-type", "basic", "QC profile (basic or full)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			body := map[string]string{"reason": reason}
			var resp api.JobResponse
			if err := client.post(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0])+"/cancel", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", resp.Job.ID, statusLabel(resp.Job.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason recorded on the job")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a job for another attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var resp api.ReconcileResponse
			if err := client.post(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0])+"/retry", nil, &resp); err != nil {
				return err
			}
			if resp.Requeued == 0 {
				return errors.New("job was not requeued (unknown id or not in a requeueable state)")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued job %s\n", args[0])
			return nil
		},
	}
}

func newJobsProgressCommand(ctx *commandContext) *cobra.Command {
	var orgFilter string
	var ids []string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show progress for active jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(orgFilter) == "" {
				return errors.New("--org is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if strings.TrimSpace(orgFilter) != "" {
				query.Set("org", strings.TrimSpace(orgFilter))
			}
			for _, id := range ids {
				query.Add("id", strings.TrimSpace(id))
			}

			var resp struct {
				Jobs []queue.ProgressSnapshot `json:"jobs"`
			}
			if err := client.get(cmd.Context(), "/api/progress?"+query.Encode(), &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "No matching jobs")
				return nil
			}
			rows := make([][]string, 0, len(resp.Jobs))
			for _, snapshot := range resp.Jobs {
				rows = append(rows, []string{
					shortID(snapshot.ID),
					statusLabel(string(snapshot.Status)),
					progressLabel(snapshot.Progress),
					orDash(snapshot.Error),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Progress", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&orgFilter, "org", "", "Organization identifier")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Job id (repeatable)")
	return cmd
}
