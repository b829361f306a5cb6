package main

import (
	"github.com/spf13/cobra"

	"deckhand/internal/api"
	"deckhand/internal/config"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:           "deckhand",
	Short:         "Generate AI slide decks through a local deckhandd daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
	rootCmd.AddCommand(
		newStatusCommand(),
		newProjectCommand(),
		newGenerateCommand(),
		newJobsCommand(),
		newSlidesCommand(),
		newVersionsCommand(),
		newRegenerateCommand(),
		newRestoreCommand(),
		newEditCommand(),
		newConfigCommand(),
	)
}

// newAPIClient resolves the daemon address from config. The CLI itself
// never needs API keys, so lenient loading keeps it usable before they
// are configured.
func newAPIClient() (*api.Client, error) {
	cfg, _, _, err := config.LoadLenient(configFlag)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Paths.APIBind), nil
}
