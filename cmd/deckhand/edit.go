package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newEditCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "edit <slide-id>",
		Short: "Replace a slide's content with hand-written JSON",
		Long: `Replace a slide's content with hand-written JSON read from --file or
stdin. The slide returns to text_ready so the next images run (or a
regenerate) picks it up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID(args[0], "slide id")
			if err != nil {
				return err
			}
			var raw []byte
			if file != "" {
				raw, err = os.ReadFile(file)
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("content is not valid JSON")
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			slide, err := client.UpdateContent(cmd.Context(), slideID, json.RawMessage(raw))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slide %d updated, status %s\n", slide.ID, slide.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read content JSON from a file instead of stdin")
	return cmd
}
