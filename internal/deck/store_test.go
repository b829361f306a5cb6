package deck_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"deckhand/internal/deck"
)

func openTestStore(t *testing.T) *deck.Store {
	t.Helper()
	store, err := deck.OpenPath(context.Background(), filepath.Join(t.TempDir(), "deckhand.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedProject(t *testing.T, store *deck.Store) *deck.Project {
	t.Helper()
	project, err := store.CreateProject(context.Background(), "Quarterly Review", "Summarize Q3 results for the leadership team")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func seedSlides(t *testing.T, store *deck.Store, projectID int64, count int) []*deck.Slide {
	t.Helper()
	specs := make([]deck.NewSlide, 0, count)
	for i := 0; i < count; i++ {
		specs = append(specs, deck.NewSlide{
			SectionIndex: i / 2,
			SlideIndex:   i % 2,
			Title:        "Slide",
		})
	}
	slides, err := store.ReplaceSlides(context.Background(), projectID, specs)
	if err != nil {
		t.Fatalf("replace slides: %v", err)
	}
	return slides
}

func TestCreateAndGetProject(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)

	fetched, err := store.GetProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if fetched.Title != project.Title || fetched.Brief != project.Brief {
		t.Fatalf("unexpected project %+v", fetched)
	}
	if _, err := store.GetProject(context.Background(), 9999); !errors.Is(err, deck.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArtifactVersionsIncrement(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	ctx := context.Background()

	first, err := store.SaveTheme(ctx, project.ID, `{"palette":"dark"}`)
	if err != nil {
		t.Fatalf("save theme: %v", err)
	}
	second, err := store.SaveTheme(ctx, project.ID, `{"palette":"light"}`)
	if err != nil {
		t.Fatalf("save theme: %v", err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("expected versions 1 and 2, got %d and %d", first.Version, second.Version)
	}

	latest, err := store.LatestTheme(ctx, project.ID)
	if err != nil {
		t.Fatalf("latest theme: %v", err)
	}
	if latest.Version != 2 || latest.Payload != `{"palette":"light"}` {
		t.Fatalf("unexpected latest theme %+v", latest)
	}

	if _, err := store.LatestOutline(ctx, project.ID); !errors.Is(err, deck.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing outline, got %v", err)
	}
}

func TestReplaceSlidesResetsDeck(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	ctx := context.Background()

	old := seedSlides(t, store, project.ID, 2)
	if err := store.TransitionSlide(ctx, old[0].ID, deck.StatusGeneratingText); err != nil {
		t.Fatalf("transition: %v", err)
	}

	replacement := seedSlides(t, store, project.ID, 3)
	slides, err := store.ListSlides(ctx, project.ID)
	if err != nil {
		t.Fatalf("list slides: %v", err)
	}
	if len(slides) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(slides))
	}
	for i, slide := range slides {
		if slide.ID != replacement[i].ID {
			t.Fatalf("slide %d: expected id %d, got %d", i, replacement[i].ID, slide.ID)
		}
		if slide.Status != deck.StatusPending {
			t.Fatalf("slide %d: expected pending, got %s", i, slide.Status)
		}
	}

	if _, err := store.GetSlide(ctx, old[0].ID); !errors.Is(err, deck.ErrNotFound) {
		t.Fatalf("expected old slide gone, got %v", err)
	}
}

func TestReplaceSlidesRejectsEmptySet(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)

	if _, err := store.ReplaceSlides(context.Background(), project.ID, nil); err == nil {
		t.Fatal("expected error for empty slide set")
	}
}

func TestSlideLifecycle(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]
	ctx := context.Background()

	steps := []deck.SlideStatus{
		deck.StatusGeneratingText,
		deck.StatusTextReady,
		deck.StatusGeneratingImage,
		deck.StatusReady,
	}
	for _, status := range steps {
		if err := store.TransitionSlide(ctx, slide.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	fetched, err := store.GetSlide(ctx, slide.ID)
	if err != nil {
		t.Fatalf("get slide: %v", err)
	}
	if fetched.Status != deck.StatusReady {
		t.Fatalf("expected ready, got %s", fetched.Status)
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]
	ctx := context.Background()

	err := store.TransitionSlide(ctx, slide.ID, deck.StatusReady)
	if !errors.Is(err, deck.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionBusySlide(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]
	ctx := context.Background()

	for _, status := range []deck.SlideStatus{deck.StatusGeneratingText, deck.StatusTextReady, deck.StatusGeneratingImage} {
		if err := store.TransitionSlide(ctx, slide.ID, status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
	err := store.TransitionSlide(ctx, slide.ID, deck.StatusGeneratingImage)
	if !errors.Is(err, deck.ErrSlideBusy) {
		t.Fatalf("expected ErrSlideBusy, got %v", err)
	}
}

func TestUpdateSlideContentClearsError(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]
	ctx := context.Background()

	if err := store.MarkSlideError(ctx, slide.ID, "text generation timed out"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if err := store.UpdateSlideContent(ctx, slide.ID, `{"blocks":[]}`); err != nil {
		t.Fatalf("update content: %v", err)
	}
	fetched, err := store.GetSlide(ctx, slide.ID)
	if err != nil {
		t.Fatalf("get slide: %v", err)
	}
	if fetched.Status != deck.StatusTextReady {
		t.Fatalf("expected text_ready, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "" {
		t.Fatalf("expected cleared error, got %q", fetched.ErrorMessage)
	}
	if !fetched.HasContent() {
		t.Fatal("expected content to be set")
	}
}

func TestImageVersionsAppendAndCascade(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		version, err := store.InsertImageVersion(ctx, deck.NewImageVersion{
			SlideID:    slide.ID,
			PromptText: "a chart",
			ImagePath:  "/tmp/img.png",
			Provider:   "gemini",
		})
		if err != nil {
			t.Fatalf("insert version %d: %v", i, err)
		}
		if version.Version != i {
			t.Fatalf("expected version %d, got %d", i, version.Version)
		}
	}

	fetched, err := store.GetSlide(ctx, slide.ID)
	if err != nil {
		t.Fatalf("get slide: %v", err)
	}
	if fetched.Status != deck.StatusReady {
		t.Fatalf("expected ready after image insert, got %s", fetched.Status)
	}

	versions, err := store.ListImageVersions(ctx, slide.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 3 || versions[0].Version != 3 {
		t.Fatalf("expected newest-first history of 3, got %+v", versions)
	}

	max, err := store.MaxImageVersion(ctx, slide.ID)
	if err != nil || max != 3 {
		t.Fatalf("expected max version 3, got %d (%v)", max, err)
	}

	// Replacing the deck cascades image history away with the slides.
	seedSlides(t, store, project.ID, 1)
	orphaned, err := store.ListImageVersions(ctx, slide.ID)
	if err != nil {
		t.Fatalf("list versions after cascade: %v", err)
	}
	if len(orphaned) != 0 {
		t.Fatalf("expected cascade delete, got %d versions", len(orphaned))
	}
}

func TestGetImageVersionMissing(t *testing.T) {
	store := openTestStore(t)
	project := seedProject(t, store)
	slide := seedSlides(t, store, project.ID, 1)[0]

	if _, err := store.GetImageVersion(context.Background(), slide.ID, 2); !errors.Is(err, deck.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deckhand.db")
	ctx := context.Background()

	store, err := deck.OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	project, err := store.CreateProject(ctx, "Reopen", "Verify migrations are idempotent")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	store.Close()

	reopened, err := deck.OpenPath(ctx, path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetProject(ctx, project.ID); err != nil {
		t.Fatalf("get project after reopen: %v", err)
	}
}
