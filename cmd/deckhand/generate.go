package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Start a generation job for a project",
		Long: `Start a generation job for a project. By default every stage runs in
order: style, outline, content, images. Use --stage to run a single stage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := client.Generate(cmd.Context(), projectID, stage)
			if err != nil {
				return err
			}
			if resp.Existing {
				fmt.Fprintf(cmd.OutOrStdout(),
					"job %s is already running for project %d\n", resp.Job.ID, projectID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dispatched job %s\n", resp.Job.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "run a single stage (style, outline, content, images)")
	return cmd
}

func parseID(value, what string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, value)
	}
	return id, nil
}
