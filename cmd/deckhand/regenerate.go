package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegenerateCommand() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "regenerate <slide-id>",
		Short: "Generate a fresh image version for one slide",
		Long: `Generate a fresh image version for one slide. Without --prompt the
prompt of the current image version is reused; the previous versions are
kept and can be restored later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID(args[0], "slide id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			version, err := client.Regenerate(cmd.Context(), slideID, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slide %d: new image version %d\n",
				slideID, version.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "override the image prompt")
	return cmd
}
