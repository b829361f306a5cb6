package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"deckhand/internal/deck"
)

// Theme is the deck-wide visual direction produced by the style stage.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	HeadingFont string   `json:"heading_font"`
	BodyFont    string   `json:"body_font"`
	Tone        string   `json:"tone"`
	ImageStyle  string   `json:"image_style"`
}

// Outline is the section/slide plan produced by the outline stage.
type Outline struct {
	Sections []Section `json:"sections"`
}

// Section groups consecutive slides under one heading.
type Section struct {
	Title  string      `json:"title"`
	Slides []SlidePlan `json:"slides"`
}

// SlidePlan is one planned slide: a title and what it should cover.
type SlidePlan struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// SlideContent is the generated body of one slide.
type SlideContent struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	SpeakerNotes string   `json:"speaker_notes"`
	ImagePrompt  string   `json:"image_prompt"`
}

// Validate rejects outlines that would produce an empty deck.
func (o Outline) Validate() error {
	if len(o.Sections) == 0 {
		return errors.New("outline has no sections")
	}
	total := 0
	for i, section := range o.Sections {
		if strings.TrimSpace(section.Title) == "" {
			return fmt.Errorf("section %d has no title", i+1)
		}
		for j, slide := range section.Slides {
			if strings.TrimSpace(slide.Title) == "" {
				return fmt.Errorf("section %d slide %d has no title", i+1, j+1)
			}
		}
		total += len(section.Slides)
	}
	if total == 0 {
		return errors.New("outline has no slides")
	}
	return nil
}

// SlideSpecs flattens the outline into positional slide rows.
func (o Outline) SlideSpecs() []deck.NewSlide {
	var specs []deck.NewSlide
	for si, section := range o.Sections {
		for pi, plan := range section.Slides {
			specs = append(specs, deck.NewSlide{
				SectionIndex: si,
				SlideIndex:   pi,
				Title:        plan.Title,
				Summary:      plan.Summary,
			})
		}
	}
	return specs
}

func decodeTheme(payload string) (*Theme, error) {
	var theme Theme
	if err := json.Unmarshal([]byte(payload), &theme); err != nil {
		return nil, fmt.Errorf("decode theme: %w", err)
	}
	return &theme, nil
}

func decodeOutline(payload string) (*Outline, error) {
	var outline Outline
	if err := json.Unmarshal([]byte(payload), &outline); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	return &outline, nil
}

func decodeSlideContent(payload string) (*SlideContent, error) {
	var content SlideContent
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return nil, fmt.Errorf("decode slide content: %w", err)
	}
	return &content, nil
}
