package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <slide-id>",
		Short: "Show a slide's image version history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID(args[0], "slide id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			versions, err := client.ListVersions(cmd.Context(), slideID)
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no image versions yet")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Version", "Prompt", "Created", "Path"})
			for _, version := range versions {
				t.AppendRow(table.Row{
					version.Version,
					truncateCell(version.Prompt, 48),
					version.CreatedAt.Local().Format("2006-01-02 15:04"),
					version.ImagePath,
				})
			}
			t.Render()
			return nil
		},
	}
}
