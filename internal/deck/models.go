package deck

import (
	"strings"
	"time"
)

// SlideStatus represents the per-slide lifecycle within a pipeline pass.
type SlideStatus string

const (
	StatusPending         SlideStatus = "pending"
	StatusGeneratingText  SlideStatus = "generating_text"
	StatusTextReady       SlideStatus = "text_ready"
	StatusGeneratingImage SlideStatus = "generating_image"
	StatusReady           SlideStatus = "ready"
	StatusError           SlideStatus = "error"
)

var allStatuses = []SlideStatus{
	StatusPending,
	StatusGeneratingText,
	StatusTextReady,
	StatusGeneratingImage,
	StatusReady,
	StatusError,
}

var statusSet = func() map[SlideStatus]struct{} {
	set := make(map[SlideStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// slideTransitions lists the legal target statuses per current status.
// Every status except generating_image admits generating_image, so
// user-triggered regeneration works regardless of where a slide sits in
// the lifecycle; a slide already generating_image admits no new work,
// which is the advisory single-writer guard for concurrent regenerate
// requests.
var slideTransitions = map[SlideStatus][]SlideStatus{
	StatusPending:         {StatusGeneratingText, StatusGeneratingImage, StatusError},
	StatusGeneratingText:  {StatusTextReady, StatusGeneratingImage, StatusError},
	StatusTextReady:       {StatusGeneratingText, StatusGeneratingImage, StatusError},
	StatusGeneratingImage: {StatusReady, StatusError},
	StatusReady:           {StatusGeneratingText, StatusGeneratingImage, StatusError},
	StatusError:           {StatusGeneratingText, StatusGeneratingImage, StatusError},
}

// AllStatuses returns the ordered list of known slide statuses.
func AllStatuses() []SlideStatus {
	cp := make([]SlideStatus, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseSlideStatus converts a string into a known SlideStatus.
func ParseSlideStatus(value string) (SlideStatus, bool) {
	normalized := SlideStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving a slide from one status to another is legal.
func CanTransition(from, to SlideStatus) bool {
	for _, candidate := range slideTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends a pipeline pass for a slide.
func IsTerminal(status SlideStatus) bool {
	return status == StatusReady || status == StatusError
}

// Project is the owner of a deck: a title plus the natural-language brief the
// pipeline generates from.
type Project struct {
	ID        int64
	Title     string
	Brief     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Artifact is a whole-project versioned document (theme or outline). Only the
// row with the highest version is consulted.
type Artifact struct {
	ID        int64
	ProjectID int64
	Version   int
	Payload   string
	CreatedAt time.Time
}

// Slide is a durable deck row. Identity is positional: (SectionIndex,
// SlideIndex) within the latest outline.
type Slide struct {
	ID           int64
	ProjectID    int64
	SectionIndex int
	SlideIndex   int
	Title        string
	Summary      string
	ContentJSON  string
	Status       SlideStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasContent reports whether the content stage has committed a payload.
func (s Slide) HasContent() bool {
	return strings.TrimSpace(s.ContentJSON) != ""
}

// ImageVersion is one immutable, numbered snapshot of a slide's generated
// image plus its provenance. For a given slide the current image is always
// the row with the maximum version.
type ImageVersion struct {
	ID           int64
	SlideID      int64
	Version      int
	PromptText   string
	ImagePath    string
	Provider     string
	RequestJSON  string
	ResponseJSON string
	CreatedAt    time.Time
}
