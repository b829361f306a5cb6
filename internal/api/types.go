// Package api defines the wire types shared by the daemon's HTTP API and
// the CLI client.
package api

import (
	"encoding/json"
	"time"

	"deckhand/internal/deck"
	"deckhand/internal/jobs"
)

// StatusResponse summarizes a running daemon.
type StatusResponse struct {
	Version    string `json:"version"`
	Projects   int    `json:"projects"`
	ActiveJobs int    `json:"active_jobs"`
	Uptime     string `json:"uptime"`
}

// Project is the wire form of a deck project.
type Project struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Brief     string    `json:"brief"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slide is the wire form of a slide row.
type Slide struct {
	ID           int64           `json:"id"`
	ProjectID    int64           `json:"project_id"`
	SectionIndex int             `json:"section_index"`
	SlideIndex   int             `json:"slide_index"`
	Title        string          `json:"title"`
	Summary      string          `json:"summary,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ImageVersion is the wire form of one image version. Raw provenance stays
// server-side; only its presence is reported.
type ImageVersion struct {
	SlideID       int64     `json:"slide_id"`
	Version       int       `json:"version"`
	Prompt        string    `json:"prompt"`
	ImagePath     string    `json:"image_path"`
	Provider      string    `json:"provider,omitempty"`
	HasProvenance bool      `json:"has_provenance"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateProjectRequest creates a new project.
type CreateProjectRequest struct {
	Title string `json:"title"`
	Brief string `json:"brief"`
}

// GenerateRequest starts a generation job; Stage empty means all stages.
type GenerateRequest struct {
	Stage string `json:"stage,omitempty"`
}

// GenerateResponse reports the dispatched (or already active) job.
type GenerateResponse struct {
	Job      jobs.Snapshot `json:"job"`
	Existing bool          `json:"existing"`
}

// RegenerateRequest regenerates one slide's image.
type RegenerateRequest struct {
	Prompt string `json:"prompt,omitempty"`
}

// RestoreRequest restores an older image version.
type RestoreRequest struct {
	Version int `json:"version"`
}

// UpdateContentRequest replaces a slide's content out of band.
type UpdateContentRequest struct {
	Content json.RawMessage `json:"content"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromProject converts a stored project to its wire form.
func FromProject(project *deck.Project) Project {
	return Project{
		ID:        project.ID,
		Title:     project.Title,
		Brief:     project.Brief,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	}
}

// FromSlide converts a stored slide to its wire form.
func FromSlide(slide *deck.Slide) Slide {
	out := Slide{
		ID:           slide.ID,
		ProjectID:    slide.ProjectID,
		SectionIndex: slide.SectionIndex,
		SlideIndex:   slide.SlideIndex,
		Title:        slide.Title,
		Summary:      slide.Summary,
		Status:       string(slide.Status),
		Error:        slide.ErrorMessage,
		UpdatedAt:    slide.UpdatedAt,
	}
	if slide.HasContent() {
		out.Content = json.RawMessage(slide.ContentJSON)
	}
	return out
}

// FromImageVersion converts a stored image version to its wire form.
func FromImageVersion(version *deck.ImageVersion) ImageVersion {
	return ImageVersion{
		SlideID:       version.SlideID,
		Version:       version.Version,
		Prompt:        version.PromptText,
		ImagePath:     version.ImagePath,
		Provider:      version.Provider,
		HasProvenance: version.RequestJSON != "" || version.ResponseJSON != "",
		CreatedAt:     version.CreatedAt,
	}
}
