package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle of one generation job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Type distinguishes what a job was asked to do.
type Type string

const (
	TypeGenerate        Type = "generate"
	TypeRegenerateSlide Type = "regenerate_slide"
)

// ErrUnknownJob is returned when a job ID has no registry entry.
var ErrUnknownJob = errors.New("jobs: unknown job")

// Progress counts per-unit outcomes within the job's current stage.
type Progress struct {
	Stage     string `json:"stage,omitempty"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// Snapshot is a point-in-time copy of a job, safe to hand to callers.
type Snapshot struct {
	ID         string    `json:"id"`
	ProjectID  int64     `json:"project_id"`
	Type       Type      `json:"type"`
	Stage      string    `json:"stage,omitempty"`
	SlideID    int64     `json:"slide_id,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Progress   Progress  `json:"progress"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Active reports whether the job is still queued or running.
func (s Snapshot) Active() bool {
	return s.Status == StatusQueued || s.Status == StatusRunning
}

type job struct {
	Snapshot
}

// Registry tracks generation jobs in memory. Job state is deliberately not
// persisted: on restart the durable slide statuses are the source of truth
// and stale in-flight jobs would only mislead.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*job
	byProj  map[int64]string
	ordered []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:   make(map[string]*job),
		byProj: make(map[int64]string),
	}
}

// Dispatch creates a queued job for the project, or returns the existing
// active job when one is already in flight. The second return reports
// whether the job already existed.
func (r *Registry) Dispatch(projectID int64, jobType Type, stage string, slideID int64) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byProj[projectID]; ok {
		if existing := r.jobs[existingID]; existing != nil && existing.Active() {
			return existing.Snapshot, true
		}
	}

	created := &job{Snapshot: Snapshot{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      jobType,
		Stage:     stage,
		SlideID:   slideID,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}}
	r.jobs[created.ID] = created
	r.byProj[projectID] = created.ID
	r.ordered = append(r.ordered, created.ID)
	return created.Snapshot, false
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return entry.Snapshot, nil
}

// List returns all jobs, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.ordered))
	for i := len(r.ordered) - 1; i >= 0; i-- {
		if entry, ok := r.jobs[r.ordered[i]]; ok {
			out = append(out, entry.Snapshot)
		}
	}
	return out
}

// MarkRunning transitions a queued job to running.
func (r *Registry) MarkRunning(id string) {
	r.update(id, func(j *job) {
		if j.Status == StatusQueued {
			j.Status = StatusRunning
			j.StartedAt = time.Now().UTC()
		}
	})
}

// MarkCompleted finishes the job successfully.
func (r *Registry) MarkCompleted(id string) {
	r.update(id, func(j *job) {
		j.Status = StatusCompleted
		j.FinishedAt = time.Now().UTC()
	})
}

// MarkFailed finishes the job with an error message.
func (r *Registry) MarkFailed(id string, message string) {
	r.update(id, func(j *job) {
		j.Status = StatusFailed
		j.Error = message
		j.FinishedAt = time.Now().UTC()
	})
}

// BeginStage resets progress counters for a new stage.
func (r *Registry) BeginStage(id, stage string, total int) {
	r.update(id, func(j *job) {
		j.Progress = Progress{Stage: stage, Total: total}
	})
}

// UnitCompleted records one successful unit in the current stage.
func (r *Registry) UnitCompleted(id string) {
	r.update(id, func(j *job) {
		j.Progress.Completed++
	})
}

// UnitFailed records one failed unit in the current stage.
func (r *Registry) UnitFailed(id string) {
	r.update(id, func(j *job) {
		j.Progress.Failed++
	})
}

func (r *Registry) update(id string, fn func(*job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.jobs[id]; ok {
		fn(entry)
	}
}
