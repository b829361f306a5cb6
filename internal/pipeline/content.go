package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/logging"
	"deckhand/internal/services"
)

// runContent generates slide bodies, one goroutine per slide. Slides fail
// independently: a failed slide is marked error and the stage carries on,
// so one stubborn slide never blocks the rest of the deck.
func (d *Driver) runContent(ctx context.Context, job jobs.Snapshot, project *deck.Project, logger *slog.Logger) error {
	slides, err := d.store.ListSlides(ctx, project.ID)
	if err != nil {
		return err
	}
	if len(slides) == 0 {
		return services.Wrap(services.ErrValidation, StageContent, "run",
			"project has no slides; run the outline stage first", nil)
	}
	theme, err := d.latestTheme(ctx, project.ID)
	if err != nil {
		return err
	}
	if theme == nil {
		return services.Wrap(services.ErrValidation, StageContent, "run",
			"project has no theme; run the style stage first", nil)
	}
	d.registry.BeginStage(job.ID, StageContent, len(slides))

	var wg sync.WaitGroup
	for _, slide := range slides {
		wg.Add(1)
		go func(slide *deck.Slide) {
			defer wg.Done()
			d.generateSlideContent(services.WithSlideID(ctx, slide.ID), job, project, theme, slide, logger)
		}(slide)
	}
	wg.Wait()
	return ctx.Err()
}

func (d *Driver) generateSlideContent(ctx context.Context, job jobs.Snapshot, project *deck.Project, theme *Theme, slide *deck.Slide, logger *slog.Logger) {
	slideLogger := logger.With(logging.Int64(logging.FieldSlideID, slide.ID))

	if err := d.store.TransitionSlide(ctx, slide.ID, deck.StatusGeneratingText); err != nil {
		slideLogger.Warn("slide skipped", logging.Error(err))
		d.registry.UnitFailed(job.ID)
		return
	}

	var content SlideContent
	err := d.textRetry(fmt.Sprintf("content generation slide %d", slide.ID)).Execute(ctx, d.textAttempts,
		func(ctx context.Context, attempt int) error {
			content = SlideContent{}
			return d.text.CompleteJSON(ctx, contentSystemPrompt, contentPrompt(project, theme, slide), &content)
		})
	if err != nil {
		d.failSlide(ctx, job, project, slide, err, slideLogger)
		return
	}

	payload, err := json.Marshal(content)
	if err == nil {
		err = d.store.UpdateSlideContent(ctx, slide.ID, string(payload))
	}
	if err != nil {
		d.failSlide(ctx, job, project, slide, err, slideLogger)
		return
	}
	d.registry.UnitCompleted(job.ID)
	slideLogger.Info("slide content generated")
}

func (d *Driver) failSlide(ctx context.Context, job jobs.Snapshot, project *deck.Project, slide *deck.Slide, cause error, logger *slog.Logger) {
	d.registry.UnitFailed(job.ID)
	d.recordSlideFailure(ctx, project, slide, cause, logger)
}

func (d *Driver) recordSlideFailure(ctx context.Context, project *deck.Project, slide *deck.Slide, cause error, logger *slog.Logger) {
	logger.Error("slide failed", logging.Error(cause))
	if err := d.store.MarkSlideError(ctx, slide.ID, services.Details(cause).Message); err != nil {
		logger.Error("record slide failure", logging.Error(err))
	}
	d.notifier.SlideFailed(ctx, project, slide, cause)
}
