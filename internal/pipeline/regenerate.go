package pipeline

import (
	"context"
	"strings"

	"deckhand/internal/deck"
	"deckhand/internal/logging"
	"deckhand/internal/services"
)

// RegenerateSlide produces a fresh image version for one slide, outside any
// project-wide job. A caller-supplied prompt wins; otherwise the prompt of
// the latest image version is reused, falling back to one derived from the
// slide's content. The status transition doubles as the concurrency guard:
// a slide already generating an image declines with deck.ErrSlideBusy.
func (d *Driver) RegenerateSlide(ctx context.Context, slideID int64, prompt string) (*deck.ImageVersion, error) {
	slide, err := d.store.GetSlide(ctx, slideID)
	if err != nil {
		return nil, err
	}
	project, err := d.store.GetProject(ctx, slide.ProjectID)
	if err != nil {
		return nil, err
	}
	// Prompt resolution is read-only, so an unresolvable prompt is
	// rejected before the slide's state is touched.
	resolved, err := d.resolvePrompt(ctx, slide, prompt)
	if err != nil {
		return nil, err
	}
	if err := d.store.TransitionSlide(ctx, slideID, deck.StatusGeneratingImage); err != nil {
		return nil, err
	}

	logger := d.logger.With(
		logging.Int64(logging.FieldProjectID, project.ID),
		logging.Int64(logging.FieldSlideID, slideID))
	logger.Info("regenerating slide image")

	result, err := d.image.Generate(ctx, resolved)
	if err != nil {
		d.recordSlideFailure(ctx, project, slide, err, logger)
		return nil, err
	}
	version, err := d.artifacts.Record(ctx, slide, resolved, result.MimeType,
		result.Bytes, result.RawRequest, result.RawResponse)
	if err != nil {
		d.recordSlideFailure(ctx, project, slide, err, logger)
		return nil, err
	}
	logger.Info("slide image regenerated", logging.Int("version", version.Version))
	return version, nil
}

// RestoreSlideImage makes an older image version current again.
func (d *Driver) RestoreSlideImage(ctx context.Context, slideID int64, version int) (*deck.ImageVersion, error) {
	restored, err := d.artifacts.Restore(ctx, slideID, version)
	if err != nil {
		return nil, err
	}
	d.logger.Info("slide image restored",
		logging.Int64(logging.FieldSlideID, slideID),
		logging.Int("from_version", version),
		logging.Int("version", restored.Version))
	return restored, nil
}

func (d *Driver) resolvePrompt(ctx context.Context, slide *deck.Slide, explicit string) (string, error) {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed, nil
	}
	if latest, err := d.store.LatestImageVersion(ctx, slide.ID); err == nil {
		if trimmed := strings.TrimSpace(latest.PromptText); trimmed != "" {
			return trimmed, nil
		}
	}
	theme, err := d.latestTheme(ctx, slide.ProjectID)
	if err != nil {
		return "", err
	}
	var content *SlideContent
	if slide.HasContent() {
		if decoded, err := decodeSlideContent(slide.ContentJSON); err == nil {
			content = decoded
		}
	}
	if prompt := imagePrompt(theme, slide, content); prompt != "" {
		return prompt, nil
	}
	return "", services.Wrap(services.ErrValidation, "regenerate", "prompt", "no prompt available", nil)
}
