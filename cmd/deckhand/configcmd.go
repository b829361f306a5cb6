package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample config to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "fill in the API keys before starting deckhandd")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.LoadLenient(configFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "config file: %s\n", resolved)
			} else {
				fmt.Fprintln(out, "config file: (defaults, no file found)")
			}
			fmt.Fprintf(out, "data dir:    %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "images dir:  %s\n", cfg.Paths.ImagesDir)
			fmt.Fprintf(out, "log dir:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "api bind:    %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "text model:  %s\n", cfg.TextService.Model)
			fmt.Fprintf(out, "image model: %s (%s, %d workers)\n",
				cfg.ImageService.Model, cfg.ImageService.AspectRatio, cfg.ImageService.Concurrency)
			return nil
		},
	}
}
