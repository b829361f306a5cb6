// Package notifications pushes pipeline lifecycle events to an ntfy topic.
// An empty topic disables the service; every method is then a no-op.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/logging"
	"deckhand/internal/services"
)

// Service posts human-readable notifications. It satisfies
// pipeline.Notifier.
type Service struct {
	topicURL   string
	jobs       bool
	errors     bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewService builds a notification service from configuration. The returned
// service is usable even when notifications are disabled.
func NewService(cfg config.Notifications, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	topic := strings.TrimSpace(cfg.NtfyTopic)
	topicURL := ""
	if topic != "" {
		if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
			topicURL = topic
		} else {
			topicURL = "https://ntfy.sh/" + topic
		}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		topicURL:   topicURL,
		jobs:       cfg.Jobs,
		errors:     cfg.Errors,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "notifications"),
	}
}

// Enabled reports whether a topic is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.topicURL != ""
}

// JobStarted announces a new generation job.
func (s *Service) JobStarted(ctx context.Context, project *deck.Project, job jobs.Snapshot) {
	if !s.Enabled() || !s.jobs {
		return
	}
	s.publish(ctx, "Deck generation started",
		fmt.Sprintf("%s: generation started", projectTitle(project)), "3", "rocket")
}

// JobCompleted announces a finished job with its final counters.
func (s *Service) JobCompleted(ctx context.Context, project *deck.Project, job jobs.Snapshot) {
	if !s.Enabled() || !s.jobs {
		return
	}
	body := fmt.Sprintf("%s: generation finished", projectTitle(project))
	if job.Progress.Failed > 0 {
		body = fmt.Sprintf("%s (%d of %d slides failed)", body,
			job.Progress.Failed, job.Progress.Total)
	}
	s.publish(ctx, "Deck generation finished", body, "3", "white_check_mark")
}

// JobFailed announces a job that aborted before finishing its stages.
func (s *Service) JobFailed(ctx context.Context, project *deck.Project, job jobs.Snapshot, err error) {
	if !s.Enabled() || !s.errors {
		return
	}
	s.publish(ctx, "Deck generation failed",
		fmt.Sprintf("%s: %s", projectTitle(project), services.Details(err).Message), "4", "x")
}

// SlideFailed announces a single slide that could not be generated.
func (s *Service) SlideFailed(ctx context.Context, project *deck.Project, slide *deck.Slide, err error) {
	if !s.Enabled() || !s.errors {
		return
	}
	s.publish(ctx, "Slide generation failed",
		fmt.Sprintf("%s / %q: %s", projectTitle(project), slide.Title, services.Details(err).Message),
		"4", "warning")
}

func (s *Service) publish(ctx context.Context, title, body, priority, tags string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(body))
	if err != nil {
		s.logger.Warn("build notification request", logging.Error(err))
		return
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("send notification", logging.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("notification rejected", logging.Int("status", resp.StatusCode))
	}
}

func projectTitle(project *deck.Project) string {
	if project == nil {
		return "unknown project"
	}
	return project.Title
}
