package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"deckhand/internal/api"
	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/logging"
	"deckhand/internal/pipeline"
	"deckhand/internal/services"
)

// apiServer serves the daemon's HTTP API over a stdlib mux.
type apiServer struct {
	store     *deck.Store
	driver    *pipeline.Driver
	registry  *jobs.Registry
	logger    *slog.Logger
	startedAt time.Time
}

func newAPIServer(store *deck.Store, driver *pipeline.Driver, registry *jobs.Registry, logger *slog.Logger) *apiServer {
	return &apiServer{
		store:     store,
		driver:    driver,
		registry:  registry,
		logger:    logging.NewComponentLogger(logger, "api"),
		startedAt: time.Now(),
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/projects/{id}/slides", s.handleListSlides)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/slides/{id}/versions", s.handleListVersions)
	mux.HandleFunc("POST /api/slides/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /api/slides/{id}/restore", s.handleRestore)
	mux.HandleFunc("POST /api/slides/{id}/content", s.handleUpdateContent)
	return s.withRequestID(mux)
}

// withRequestID tags every request with a correlation id so daemon log lines
// for one request can be tied together.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		logging.WithContext(ctx, s.logger).Debug("request received",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	active := 0
	for _, job := range s.registry.List() {
		if job.Active() {
			active++
		}
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Version:    Version,
		Projects:   len(projects),
		ActiveJobs: active,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *apiServer) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Brief) == "" {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "title and brief are required"})
		return
	}
	project, err := s.store.CreateProject(r.Context(), req.Title, req.Brief)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromProject(project))
}

func (s *apiServer) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]api.Project, 0, len(projects))
	for _, project := range projects {
		out = append(out, api.FromProject(project))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.GenerateRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	if stage := r.URL.Query().Get("stage"); stage != "" {
		req.Stage = stage
	}
	job, existing, err := s.driver.Generate(r.Context(), projectID, req.Stage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusAccepted
	if existing {
		status = http.StatusOK
	}
	s.writeJSON(w, status, api.GenerateResponse{Job: job, Existing: existing})
}

func (s *apiServer) handleListSlides(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		s.writeError(w, err)
		return
	}
	slides, err := s.store.ListSlides(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]api.Slide, 0, len(slides))
	for _, slide := range slides {
		out = append(out, api.FromSlide(slide))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleListVersions(w http.ResponseWriter, r *http.Request) {
	slideID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetSlide(r.Context(), slideID); err != nil {
		s.writeError(w, err)
		return
	}
	versions, err := s.store.ListImageVersions(r.Context(), slideID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]api.ImageVersion, 0, len(versions))
	for _, version := range versions {
		out = append(out, api.FromImageVersion(version))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	slideID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.RegenerateRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	version, err := s.driver.RegenerateSlide(r.Context(), slideID, req.Prompt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromImageVersion(version))
}

func (s *apiServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	slideID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.RestoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Version <= 0 {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "version must be positive"})
		return
	}
	restored, err := s.driver.RestoreSlideImage(r.Context(), slideID, req.Version)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromImageVersion(restored))
}

func (s *apiServer) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	slideID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req api.UpdateContentRequest
	if !s.decode(w, r, &req) {
		return
	}
	trimmed := strings.TrimSpace(string(req.Content))
	if trimmed == "" || trimmed == "null" {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "content is required"})
		return
	}
	if err := s.store.EditSlideContent(r.Context(), slideID, string(req.Content)); err != nil {
		s.writeError(w, err)
		return
	}
	slide, err := s.store.GetSlide(r.Context(), slideID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSlide(slide))
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(out); err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, deck.ErrNotFound), errors.Is(err, jobs.ErrUnknownJob), errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, deck.ErrSlideBusy), errors.Is(err, deck.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}
