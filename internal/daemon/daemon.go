// Package daemon wires configuration, storage, generation services, and the
// HTTP API into one long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/flock"

	"deckhand/internal/artifacts"
	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/logging"
	"deckhand/internal/notifications"
	"deckhand/internal/pipeline"
	"deckhand/internal/services/imagegen"
	"deckhand/internal/services/textgen"
)

// Version is stamped at build time.
var Version = "dev"

// Daemon is the assembled deckhand process.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    *deck.Store
	registry *jobs.Registry
	driver   *pipeline.Driver
	server   *http.Server
}

// New builds a daemon from validated configuration: acquires the instance
// lock, opens the store, and wires the pipeline.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	lock, err := acquireLock(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	store, err := deck.NewStore(ctx, cfg)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	artifactStore, err := artifacts.NewStore(cfg.Paths.ImagesDir, store)
	if err != nil {
		store.Close()
		lock.Unlock()
		return nil, err
	}
	textClient, err := textgen.NewClient(cfg.TextService)
	if err != nil {
		store.Close()
		lock.Unlock()
		return nil, err
	}
	imageClient, err := imagegen.NewClient(cfg.ImageService)
	if err != nil {
		store.Close()
		lock.Unlock()
		return nil, err
	}

	registry := jobs.NewRegistry()
	driver, err := pipeline.New(pipeline.Deps{
		Store:          store,
		Artifacts:      artifactStore,
		Text:           textClient,
		Image:          imageClient,
		Registry:       registry,
		Notifier:       notifications.NewService(cfg.Notifications, logger),
		Logger:         logging.NewComponentLogger(logger, "pipeline"),
		TextAttempts:   cfg.TextService.Attempts,
		ImageWorkers:   cfg.ImageService.Concurrency,
		RetryBaseDelay: time.Duration(cfg.Pipeline.RetryBaseDelayMS) * time.Millisecond,
		RootContext:    ctx,
	})
	if err != nil {
		store.Close()
		lock.Unlock()
		return nil, err
	}

	server := &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           newAPIServer(store, driver, registry, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lock:     lock,
		store:    store,
		registry: registry,
		driver:   driver,
		server:   server,
	}, nil
}

// Run serves the API until ctx is canceled, then shuts down cleanly.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("api listening", logging.String("addr", d.server.Addr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		d.release()
		return err
	case <-ctx.Done():
	}

	d.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := d.server.Shutdown(shutdownCtx)
	d.release()
	return err
}

func (d *Daemon) release() {
	if err := d.store.Close(); err != nil {
		d.logger.Warn("close store", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", logging.Error(err))
	}
}
