package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <slide-id> <version>",
		Short: "Make an older image version current again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideID, err := parseID(args[0], "slide id")
			if err != nil {
				return err
			}
			version, err := strconv.Atoi(args[1])
			if err != nil || version <= 0 {
				return fmt.Errorf("invalid version %q", args[1])
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			restored, err := client.Restore(cmd.Context(), slideID, version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slide %d: version %d restored as version %d\n",
				slideID, version, restored.Version)
			return nil
		},
	}
}
