package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"deckhand/internal/jobs"
)

func newJobsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs [job-id]",
		Short: "List generation jobs, or show one job in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				job, err := client.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printJob(cmd, *job)
				return nil
			}

			list, err := client.ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Project", "Type", "Status", "Progress"})
			for _, job := range list {
				t.AppendRow(table.Row{
					job.ID,
					job.ProjectID,
					job.Type,
					job.Status,
					formatProgress(job.Progress),
				})
			}
			t.Render()
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, job jobs.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job:      %s\n", job.ID)
	fmt.Fprintf(out, "project:  %d\n", job.ProjectID)
	fmt.Fprintf(out, "type:     %s\n", job.Type)
	if job.Stage != "" {
		fmt.Fprintf(out, "stage:    %s\n", job.Stage)
	}
	fmt.Fprintf(out, "status:   %s\n", job.Status)
	fmt.Fprintf(out, "progress: %s\n", formatProgress(job.Progress))
	if job.Error != "" {
		fmt.Fprintf(out, "error:    %s\n", job.Error)
	}
}

func formatProgress(progress jobs.Progress) string {
	if progress.Total == 0 && progress.Stage == "" {
		return "-"
	}
	summary := fmt.Sprintf("%s %d/%d", progress.Stage, progress.Completed, progress.Total)
	if progress.Failed > 0 {
		summary += fmt.Sprintf(" (%d failed)", progress.Failed)
	}
	return summary
}
