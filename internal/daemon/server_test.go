package daemon

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deckhand/internal/api"
	"deckhand/internal/artifacts"
	"deckhand/internal/deck"
	"deckhand/internal/jobs"
	"deckhand/internal/pipeline"
	"deckhand/internal/services/imagegen"
)

type fakeText struct{}

func (fakeText) CompleteJSON(ctx context.Context, system, user string, out any) error {
	switch v := out.(type) {
	case *pipeline.Theme:
		*v = pipeline.Theme{Name: "Minimal", Tone: "calm", ImageStyle: "line art"}
	case *pipeline.Outline:
		*v = pipeline.Outline{Sections: []pipeline.Section{
			{Title: "Only section", Slides: []pipeline.SlidePlan{
				{Title: "First", Summary: "opening"},
				{Title: "Second", Summary: "closing"},
			}},
		}}
	case *pipeline.SlideContent:
		*v = pipeline.SlideContent{Title: "Generated", Bullets: []string{"a"}, ImagePrompt: "an illustration"}
	}
	return nil
}

type fakeImage struct{}

func (fakeImage) Generate(ctx context.Context, prompt string) (*imagegen.Result, error) {
	return &imagegen.Result{Bytes: []byte("img"), MimeType: "image/png"}, nil
}

func newTestClient(t *testing.T) (*api.Client, *deck.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := deck.OpenPath(context.Background(), filepath.Join(dir, "deckhand.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	artifactStore, err := artifacts.NewStore(filepath.Join(dir, "images"), store)
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	registry := jobs.NewRegistry()
	driver, err := pipeline.New(pipeline.Deps{
		Store:          store,
		Artifacts:      artifactStore,
		Text:           fakeText{},
		Image:          fakeImage{},
		Registry:       registry,
		RetryBaseDelay: time.Millisecond,
		Sleeper:        func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}

	server := httptest.NewServer(newAPIServer(store, driver, registry, nil).routes())
	t.Cleanup(server.Close)
	return api.NewClient(server.URL), store
}

func waitForJob(t *testing.T, client *api.Client, jobID string) jobs.Snapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		job, err := client.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if !job.Active() {
			return *job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s did not finish", jobID)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	client, _ := newTestClient(t)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Version != Version {
		t.Fatalf("unexpected version %q", status.Version)
	}
	if status.Projects != 0 || status.ActiveJobs != 0 {
		t.Fatalf("expected empty daemon, got %+v", status)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := client.CreateProject(ctx, "", "brief"); err == nil {
		t.Fatal("expected error for missing title")
	}
	project, err := client.CreateProject(ctx, "Launch", "Introduce the new product")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.ID == 0 {
		t.Fatal("expected assigned project id")
	}

	projects, err := client.ListProjects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("expected one project, got %d (%v)", len(projects), err)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	project, err := client.CreateProject(ctx, "Launch", "Introduce the new product")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	dispatched, err := client.Generate(ctx, project.ID, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if dispatched.Existing {
		t.Fatal("first dispatch must create a job")
	}
	job := waitForJob(t, client, dispatched.Job.ID)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed job, got %s (%s)", job.Status, job.Error)
	}

	slides, err := client.ListSlides(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListSlides: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(slides))
	}
	for _, slide := range slides {
		if slide.Status != string(deck.StatusReady) {
			t.Fatalf("slide %q: expected ready, got %s", slide.Title, slide.Status)
		}
	}

	versions, err := client.ListVersions(ctx, slides[0].ID)
	if err != nil || len(versions) != 1 {
		t.Fatalf("expected one image version, got %d (%v)", len(versions), err)
	}
	if !versions[0].HasProvenance && versions[0].Prompt == "" {
		t.Fatalf("unexpected version payload %+v", versions[0])
	}

	regenerated, err := client.Regenerate(ctx, slides[0].ID, "something bolder")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if regenerated.Version != 2 || regenerated.Prompt != "something bolder" {
		t.Fatalf("unexpected regenerated version %+v", regenerated)
	}

	restored, err := client.Restore(ctx, slides[0].ID, 1)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Version != 3 {
		t.Fatalf("expected restore to append version 3, got %d", restored.Version)
	}
}

func TestGenerateUnknownProject(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Generate(context.Background(), 42, "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRestoreRejectsBadVersion(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, "P", "B")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	slides, err := store.ReplaceSlides(ctx, project.ID, []deck.NewSlide{{Title: "S"}})
	if err != nil {
		t.Fatalf("replace slides: %v", err)
	}

	if _, err := client.Restore(ctx, slides[0].ID, 0); err == nil {
		t.Fatal("expected error for non-positive version")
	}
	if _, err := client.Restore(ctx, slides[0].ID, 9); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestUpdateContentResetsSlide(t *testing.T) {
	client, store := newTestClient(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, "P", "B")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	slides, err := store.ReplaceSlides(ctx, project.ID, []deck.NewSlide{{Title: "S"}})
	if err != nil {
		t.Fatalf("replace slides: %v", err)
	}
	if err := store.MarkSlideError(ctx, slides[0].ID, "previous failure"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	updated, err := client.UpdateContent(ctx, slides[0].ID, json.RawMessage(`{"title":"Edited","bullets":["x"]}`))
	if err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if updated.Status != string(deck.StatusTextReady) {
		t.Fatalf("expected text_ready after edit, got %s", updated.Status)
	}
	if updated.Error != "" {
		t.Fatalf("expected cleared error, got %q", updated.Error)
	}

	if _, err := client.UpdateContent(ctx, slides[0].ID, json.RawMessage(`null`)); err == nil {
		t.Fatal("expected error for empty content")
	}
}
