package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/logging"
	"deckhand/internal/services"
)

// runImages generates one image per text_ready slide, bounded by the image
// concurrency limit. Slides that never got content stay untouched; slides
// that fail are marked error individually.
func (d *Driver) runImages(ctx context.Context, job jobs.Snapshot, project *deck.Project, logger *slog.Logger) error {
	slides, err := d.store.ListSlides(ctx, project.ID)
	if err != nil {
		return err
	}

	eligible := make([]*deck.Slide, 0, len(slides))
	for _, slide := range slides {
		if slide.Status == deck.StatusTextReady {
			eligible = append(eligible, slide)
		}
	}
	d.registry.BeginStage(job.ID, StageImages, len(eligible))
	if len(eligible) == 0 {
		logger.Info("no slides awaiting images")
		return nil
	}

	theme, err := d.latestTheme(ctx, project.ID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, slide := range eligible {
		wg.Add(1)
		go func(slide *deck.Slide) {
			defer wg.Done()
			err := d.imageLimiter.Run(services.WithSlideID(ctx, slide.ID), func(ctx context.Context) error {
				d.generateSlideImage(ctx, job, project, theme, slide, logger)
				return nil
			})
			if err != nil {
				logger.Warn("slide image admission aborted",
					logging.Int64(logging.FieldSlideID, slide.ID),
					logging.Error(err))
				d.registry.UnitFailed(job.ID)
			}
		}(slide)
	}
	wg.Wait()
	return ctx.Err()
}

func (d *Driver) generateSlideImage(ctx context.Context, job jobs.Snapshot, project *deck.Project, theme *Theme, slide *deck.Slide, logger *slog.Logger) {
	slideLogger := logger.With(logging.Int64(logging.FieldSlideID, slide.ID))

	if err := d.store.TransitionSlide(ctx, slide.ID, deck.StatusGeneratingImage); err != nil {
		slideLogger.Warn("slide skipped", logging.Error(err))
		d.registry.UnitFailed(job.ID)
		return
	}

	content, err := decodeSlideContent(slide.ContentJSON)
	if err != nil {
		d.failSlide(ctx, job, project, slide, err, slideLogger)
		return
	}
	prompt := imagePrompt(theme, slide, content)

	// Image calls are single-attempt: they are slow and expensive, and a
	// failed slide can always be regenerated on demand.
	result, err := d.image.Generate(ctx, prompt)
	if err != nil {
		d.failSlide(ctx, job, project, slide, err, slideLogger)
		return
	}
	version, err := d.artifacts.Record(ctx, slide, prompt, result.MimeType,
		result.Bytes, result.RawRequest, result.RawResponse)
	if err != nil {
		d.failSlide(ctx, job, project, slide, err, slideLogger)
		return
	}
	d.registry.UnitCompleted(job.ID)
	slideLogger.Info("slide image generated", logging.Int("version", version.Version))
}
