// Package textutil provides small text normalization helpers.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// CleanTitle collapses internal whitespace and trims the result.
func CleanTitle(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// TitleFromBrief derives a presentable deck title from a free-form brief:
// the first sentence (or line), clamped to a few words and title-cased.
func TitleFromBrief(brief string) string {
	text := strings.TrimSpace(brief)
	if text == "" {
		return "Untitled Deck"
	}
	for _, sep := range []string{"\n", ". ", "! ", "? "} {
		if idx := strings.Index(text, sep); idx > 0 {
			text = text[:idx]
			break
		}
	}
	words := strings.Fields(text)
	if len(words) > 8 {
		words = words[:8]
	}
	title := strings.Join(words, " ")
	title = strings.TrimRight(title, ".!?,;:")
	if title == "" {
		return "Untitled Deck"
	}
	return titleCaser.String(title)
}
