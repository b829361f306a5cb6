package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/services"
)

// runStyle asks the text model for a visual theme and appends it as the
// project's newest theme version.
func (d *Driver) runStyle(ctx context.Context, job jobs.Snapshot, project *deck.Project) error {
	d.registry.BeginStage(job.ID, StageStyle, 1)

	var theme Theme
	err := d.textRetry("style generation").Execute(ctx, d.textAttempts,
		func(ctx context.Context, attempt int) error {
			theme = Theme{}
			return d.text.CompleteJSON(ctx, styleSystemPrompt, stylePrompt(project), &theme)
		})
	if err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}

	payload, err := json.Marshal(theme)
	if err != nil {
		d.registry.UnitFailed(job.ID)
		return fmt.Errorf("encode theme: %w", err)
	}
	if _, err := d.store.SaveTheme(ctx, project.ID, string(payload)); err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}
	d.registry.UnitCompleted(job.ID)
	return nil
}

// runOutline asks the text model for a section/slide plan, validates it, and
// replaces the project's slides with fresh pending rows. Replacing cascades
// away prior image history, so an empty or malformed outline must never get
// this far.
func (d *Driver) runOutline(ctx context.Context, job jobs.Snapshot, project *deck.Project) error {
	d.registry.BeginStage(job.ID, StageOutline, 1)

	theme, err := d.latestTheme(ctx, project.ID)
	if err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}

	var outline Outline
	err = d.textRetry("outline generation").Execute(ctx, d.textAttempts,
		func(ctx context.Context, attempt int) error {
			outline = Outline{}
			if err := d.text.CompleteJSON(ctx, outlineSystemPrompt, outlinePrompt(project, theme), &outline); err != nil {
				return err
			}
			// Validate inside the retried op: a degenerate outline burns
			// an attempt the same way a malformed response does.
			if err := outline.Validate(); err != nil {
				return services.Wrap(services.ErrExternalService, StageOutline, "validate", err.Error(), nil)
			}
			return nil
		})
	if err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}

	payload, err := json.Marshal(outline)
	if err != nil {
		d.registry.UnitFailed(job.ID)
		return fmt.Errorf("encode outline: %w", err)
	}
	if _, err := d.store.SaveOutline(ctx, project.ID, string(payload)); err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}
	if _, err := d.store.ReplaceSlides(ctx, project.ID, outline.SlideSpecs()); err != nil {
		d.registry.UnitFailed(job.ID)
		return err
	}
	d.registry.UnitCompleted(job.ID)
	return nil
}
