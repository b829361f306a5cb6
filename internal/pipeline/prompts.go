package pipeline

import (
	"fmt"
	"strings"

	"deckhand/internal/deck"
)

const styleSystemPrompt = `You are a presentation designer. Given a deck brief,
respond with a single JSON object describing a cohesive visual theme:
{"name": "...", "description": "...", "colors": ["#RRGGBB", ...],
"heading_font": "...", "body_font": "...", "tone": "...",
"image_style": "..."}. Respond with JSON only.`

const outlineSystemPrompt = `You are a presentation writer. Given a deck brief
and its visual theme, respond with a single JSON object:
{"sections": [{"title": "...", "slides": [{"title": "...", "summary": "..."}]}]}.
Keep the deck focused; every slide summary states what that slide must convey.
Respond with JSON only.`

const contentSystemPrompt = `You are a presentation writer. Given one planned
slide, respond with a single JSON object:
{"title": "...", "bullets": ["..."], "speaker_notes": "...",
"image_prompt": "..."}. The image_prompt describes a single illustrative
image for the slide, concrete enough to hand to an image model. Respond with
JSON only.`

func stylePrompt(project *deck.Project) string {
	return fmt.Sprintf("Deck title: %s\n\nBrief:\n%s", project.Title, project.Brief)
}

func outlinePrompt(project *deck.Project, theme *Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deck title: %s\n\nBrief:\n%s\n", project.Title, project.Brief)
	if theme != nil {
		fmt.Fprintf(&b, "\nVisual theme: %s (%s), tone: %s\n", theme.Name, theme.Description, theme.Tone)
	}
	return b.String()
}

func contentPrompt(project *deck.Project, theme *Theme, slide *deck.Slide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deck title: %s\nBrief:\n%s\n", project.Title, project.Brief)
	if theme != nil {
		fmt.Fprintf(&b, "\nTone: %s\n", theme.Tone)
	}
	fmt.Fprintf(&b, "\nSlide title: %s\n", slide.Title)
	if slide.Summary != "" {
		fmt.Fprintf(&b, "Slide summary: %s\n", slide.Summary)
	}
	return b.String()
}

// imagePrompt resolves the prompt used for a slide's image. The generated
// content's image_prompt wins; a slide without one falls back to its title
// and summary, styled by the theme.
func imagePrompt(theme *Theme, slide *deck.Slide, content *SlideContent) string {
	base := ""
	if content != nil {
		base = strings.TrimSpace(content.ImagePrompt)
	}
	if base == "" {
		base = strings.TrimSpace(slide.Title)
		if summary := strings.TrimSpace(slide.Summary); summary != "" {
			base += ": " + summary
		}
	}
	if base == "" {
		return ""
	}
	if theme != nil && strings.TrimSpace(theme.ImageStyle) != "" {
		base += ". Style: " + strings.TrimSpace(theme.ImageStyle)
	}
	return base
}
