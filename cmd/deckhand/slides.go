package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSlidesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slides <project-id>",
		Short: "List a project's slides in deck order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			slides, err := client.ListSlides(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if len(slides) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no slides; run `deckhand generate` first")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Pos", "Title", "Status", "Error"})
			for _, slide := range slides {
				t.AppendRow(table.Row{
					slide.ID,
					fmt.Sprintf("%d.%d", slide.SectionIndex+1, slide.SlideIndex+1),
					truncateCell(slide.Title, 36),
					slide.Status,
					truncateCell(slide.Error, 40),
				})
			}
			t.Render()
			return nil
		},
	}
}
