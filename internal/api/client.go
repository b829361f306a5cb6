package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/jobs"
)

// Client talks to a running deckhand daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the daemon listening at bind (host:port or
// full URL).
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project from a title and brief.
func (c *Client) CreateProject(ctx context.Context, title, brief string) (*Project, error) {
	var out Project
	err := c.do(ctx, http.MethodPost, "/api/projects",
		CreateProjectRequest{Title: title, Brief: brief}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects lists all projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate dispatches a generation job for the project.
func (c *Client) Generate(ctx context.Context, projectID int64, stage string) (*GenerateResponse, error) {
	var out GenerateResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/generate", projectID),
		GenerateRequest{Stage: stage}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSlides lists the project's slides in deck order.
func (c *Client) ListSlides(ctx context.Context, projectID int64) ([]Slide, error) {
	var out []Slide
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/slides", projectID), nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobs lists known jobs, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]jobs.Snapshot, error) {
	var out []jobs.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJob fetches one job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*jobs.Snapshot, error) {
	var out jobs.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVersions lists a slide's image history, newest first.
func (c *Client) ListVersions(ctx context.Context, slideID int64) ([]ImageVersion, error) {
	var out []ImageVersion
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/slides/%d/versions", slideID), nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Regenerate produces a fresh image version for a slide.
func (c *Client) Regenerate(ctx context.Context, slideID int64, prompt string) (*ImageVersion, error) {
	var out ImageVersion
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/slides/%d/regenerate", slideID),
		RegenerateRequest{Prompt: prompt}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Restore makes an older image version current again.
func (c *Client) Restore(ctx context.Context, slideID int64, version int) (*ImageVersion, error) {
	var out ImageVersion
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/slides/%d/restore", slideID),
		RestoreRequest{Version: version}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContent replaces a slide's content out of band.
func (c *Client) UpdateContent(ctx context.Context, slideID int64, content json.RawMessage) (*Slide, error) {
	var out Slide
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/slides/%d/content", slideID),
		UpdateContentRequest{Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var failure ErrorResponse
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("daemon: %s", failure.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
