package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deckhand/internal/artifacts"
	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/limiter"
	"deckhand/internal/logging"
	"deckhand/internal/retry"
	"deckhand/internal/services"
	"deckhand/internal/services/imagegen"
)

// Stage names, in execution order for a full generation pass.
const (
	StageStyle   = "style"
	StageOutline = "outline"
	StageContent = "content"
	StageImages  = "images"
)

var stageOrder = []string{StageStyle, StageOutline, StageContent, StageImages}

// ParseStage validates a stage name supplied by a caller.
func ParseStage(value string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	for _, stage := range stageOrder {
		if stage == name {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (valid: %s)", value, strings.Join(stageOrder, ", "))
}

// TextClient produces structured JSON documents from prompts.
// *textgen.Client satisfies it.
type TextClient interface {
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

// ImageClient produces one image per prompt. *imagegen.Client satisfies it.
type ImageClient interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Result, error)
}

// Notifier receives pipeline lifecycle events.
type Notifier interface {
	JobStarted(ctx context.Context, project *deck.Project, job jobs.Snapshot)
	JobCompleted(ctx context.Context, project *deck.Project, job jobs.Snapshot)
	JobFailed(ctx context.Context, project *deck.Project, job jobs.Snapshot, err error)
	SlideFailed(ctx context.Context, project *deck.Project, slide *deck.Slide, err error)
}

type noopNotifier struct{}

func (noopNotifier) JobStarted(context.Context, *deck.Project, jobs.Snapshot)       {}
func (noopNotifier) JobCompleted(context.Context, *deck.Project, jobs.Snapshot)     {}
func (noopNotifier) JobFailed(context.Context, *deck.Project, jobs.Snapshot, error) {}
func (noopNotifier) SlideFailed(context.Context, *deck.Project, *deck.Slide, error) {}

// Deps carries everything a Driver needs. Store, Artifacts, Text, Image, and
// Registry are required; the rest default sensibly.
type Deps struct {
	Store     *deck.Store
	Artifacts *artifacts.Store
	Text      TextClient
	Image     ImageClient
	Registry  *jobs.Registry
	Notifier  Notifier
	Logger    *slog.Logger

	// TextAttempts is the attempt budget for structured-text calls.
	// Image calls are deliberately single-attempt.
	TextAttempts   int
	ImageWorkers   int
	RetryBaseDelay time.Duration

	// Sleeper overrides backoff sleeps in tests.
	Sleeper func(time.Duration)

	// RootContext is used for jobs dispatched asynchronously; request
	// contexts die with the request, generation must not.
	RootContext context.Context
}

// Driver runs the generation pipeline for projects and single slides.
type Driver struct {
	store        *deck.Store
	artifacts    *artifacts.Store
	text         TextClient
	image        ImageClient
	registry     *jobs.Registry
	notifier     Notifier
	logger       *slog.Logger
	imageLimiter *limiter.Limiter
	textAttempts int
	retryBase    time.Duration
	sleeper      func(time.Duration)
	rootCtx      context.Context
}

// New validates deps and builds a driver.
func New(deps Deps) (*Driver, error) {
	if deps.Store == nil || deps.Artifacts == nil {
		return nil, errors.New("pipeline: store and artifact store are required")
	}
	if deps.Text == nil || deps.Image == nil {
		return nil, errors.New("pipeline: text and image clients are required")
	}
	if deps.Registry == nil {
		return nil, errors.New("pipeline: job registry is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.TextAttempts <= 0 {
		deps.TextAttempts = 3
	}
	if deps.ImageWorkers <= 0 {
		deps.ImageWorkers = 5
	}
	if deps.RetryBaseDelay <= 0 {
		deps.RetryBaseDelay = time.Second
	}
	if deps.RootContext == nil {
		deps.RootContext = context.Background()
	}
	imageLimiter, err := limiter.New(deps.ImageWorkers)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Driver{
		store:        deps.Store,
		artifacts:    deps.Artifacts,
		text:         deps.Text,
		image:        deps.Image,
		registry:     deps.Registry,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		imageLimiter: imageLimiter,
		textAttempts: deps.TextAttempts,
		retryBase:    deps.RetryBaseDelay,
		sleeper:      deps.Sleeper,
		rootCtx:      deps.RootContext,
	}, nil
}

// Generate dispatches a generation job for the project, running every stage
// or just the named one. Dispatch is idempotent per project: while a job is
// active, repeat calls return it instead of creating another. The job runs
// asynchronously; poll the registry for progress.
func (d *Driver) Generate(ctx context.Context, projectID int64, stage string) (jobs.Snapshot, bool, error) {
	if stage != "" {
		parsed, err := ParseStage(stage)
		if err != nil {
			return jobs.Snapshot{}, false, err
		}
		stage = parsed
	}
	if _, err := d.store.GetProject(ctx, projectID); err != nil {
		return jobs.Snapshot{}, false, err
	}

	job, existing := d.registry.Dispatch(projectID, jobs.TypeGenerate, stage, 0)
	if existing {
		return job, true, nil
	}
	go func() {
		if err := d.Execute(d.rootCtx, job); err != nil {
			d.logger.Error("generation job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Int64(logging.FieldProjectID, job.ProjectID),
				logging.Error(err))
		}
	}()
	return job, false, nil
}

// Execute runs a dispatched job to completion, synchronously.
func (d *Driver) Execute(ctx context.Context, job jobs.Snapshot) error {
	d.registry.MarkRunning(job.ID)
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, d.logger).With(
		logging.Int64(logging.FieldProjectID, job.ProjectID))

	project, err := d.store.GetProject(ctx, job.ProjectID)
	if err != nil {
		d.registry.MarkFailed(job.ID, err.Error())
		return err
	}
	d.notifier.JobStarted(ctx, project, job)

	stages := stageOrder
	if job.Stage != "" {
		stages = []string{job.Stage}
	}
	for _, stage := range stages {
		stageCtx := services.WithStage(ctx, stage)
		stageLogger := logger.With(logging.String(logging.FieldStage, stage))
		stageLogger.Info("stage started")
		if err := d.runStage(stageCtx, job, project, stage, stageLogger); err != nil {
			stageLogger.Error("stage failed", logging.Error(err))
			d.registry.MarkFailed(job.ID, err.Error())
			d.notifier.JobFailed(ctx, project, job, err)
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		stageLogger.Info("stage finished")
	}

	d.registry.MarkCompleted(job.ID)
	if finished, err := d.registry.Get(job.ID); err == nil {
		job = finished
	}
	d.notifier.JobCompleted(ctx, project, job)
	return nil
}

func (d *Driver) runStage(ctx context.Context, job jobs.Snapshot, project *deck.Project, stage string, logger *slog.Logger) error {
	switch stage {
	case StageStyle:
		return d.runStyle(ctx, job, project)
	case StageOutline:
		return d.runOutline(ctx, job, project)
	case StageContent:
		return d.runContent(ctx, job, project, logger)
	case StageImages:
		return d.runImages(ctx, job, project, logger)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (d *Driver) textRetry(label string) *retry.Executor {
	opts := []retry.Option{
		retry.WithBaseDelay(d.retryBase),
		retry.WithLogger(d.logger),
	}
	if d.sleeper != nil {
		opts = append(opts, retry.WithSleeper(d.sleeper))
	}
	return retry.New(label, opts...)
}

// latestTheme loads the current theme, tolerating its absence.
func (d *Driver) latestTheme(ctx context.Context, projectID int64) (*Theme, error) {
	artifact, err := d.store.LatestTheme(ctx, projectID)
	if errors.Is(err, deck.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTheme(artifact.Payload)
}
