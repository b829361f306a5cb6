package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"deckhand/internal/textutil"
)

func newProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage deck projects",
	}
	cmd.AddCommand(newProjectCreateCommand(), newProjectListCommand())
	return cmd
}

func newProjectCreateCommand() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "create <brief>",
		Short: "Create a project from a natural-language brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brief := args[0]
			resolved := textutil.CleanTitle(title)
			if resolved == "" {
				resolved = textutil.TitleFromBrief(brief)
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			project, err := client.CreateProject(cmd.Context(), resolved, brief)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %d: %s\n", project.ID, project.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "deck title (derived from the brief when omitted)")
	return cmd
}

func newProjectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no projects")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Title", "Brief", "Updated"})
			for _, project := range projects {
				t.AppendRow(table.Row{
					project.ID,
					project.Title,
					truncateCell(project.Brief, 48),
					project.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			t.Render()
			return nil
		},
	}
}
