// deckhandd is the deckhand daemon: it owns the deck database and runs
// generation jobs, exposing a local HTTP API for the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"deckhand/internal/config"
	"deckhand/internal/daemon"
	"deckhand/internal/logging"
	"deckhand/internal/preflight"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(daemon.Version)
		return
	}

	cfg, resolved, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckhandd: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckhandd: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting deckhandd",
		logging.String("version", daemon.Version),
		logging.String("config", resolved))

	results, ok := preflight.Run(cfg)
	for _, result := range results {
		if result.OK {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "deckhandd: preflight checks failed, refusing to start")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("daemon startup failed", logging.Error(err))
		fmt.Fprintf(os.Stderr, "deckhandd: %v\n", err)
		os.Exit(1)
	}
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon exited with error", logging.Error(err))
		fmt.Fprintf(os.Stderr, "deckhandd: %v\n", err)
		os.Exit(1)
	}
}
