package jobs

import (
	"errors"
	"sync"
	"testing"
)

func TestDispatchIsIdempotentPerProject(t *testing.T) {
	registry := NewRegistry()

	first, existing := registry.Dispatch(1, TypeGenerate, "", 0)
	if existing {
		t.Fatal("first dispatch should create a job")
	}
	second, existing := registry.Dispatch(1, TypeGenerate, "", 0)
	if !existing {
		t.Fatal("second dispatch should return the active job")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same job, got %s and %s", first.ID, second.ID)
	}

	other, existing := registry.Dispatch(2, TypeGenerate, "", 0)
	if existing || other.ID == first.ID {
		t.Fatal("different projects must get different jobs")
	}
}

func TestDispatchAfterCompletionCreatesNewJob(t *testing.T) {
	registry := NewRegistry()

	first, _ := registry.Dispatch(1, TypeGenerate, "", 0)
	registry.MarkRunning(first.ID)
	registry.MarkCompleted(first.ID)

	second, existing := registry.Dispatch(1, TypeGenerate, "outline", 0)
	if existing {
		t.Fatal("completed job must not block new dispatch")
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh job after completion")
	}
	if second.Stage != "outline" {
		t.Fatalf("expected stage recorded, got %q", second.Stage)
	}
}

func TestLifecycleTimestamps(t *testing.T) {
	registry := NewRegistry()
	snapshot, _ := registry.Dispatch(1, TypeGenerate, "", 0)

	registry.MarkRunning(snapshot.ID)
	running, err := registry.Get(snapshot.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if running.Status != StatusRunning || running.StartedAt.IsZero() {
		t.Fatalf("expected running with start time, got %+v", running)
	}

	registry.MarkFailed(snapshot.ID, "outline generation failed")
	failed, err := registry.Get(snapshot.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != StatusFailed || failed.Error == "" || failed.FinishedAt.IsZero() {
		t.Fatalf("expected failed with error and finish time, got %+v", failed)
	}
	if failed.Active() {
		t.Fatal("failed job must not be active")
	}
}

func TestProgressCounters(t *testing.T) {
	registry := NewRegistry()
	snapshot, _ := registry.Dispatch(1, TypeGenerate, "", 0)

	registry.BeginStage(snapshot.ID, "content", 4)
	registry.UnitCompleted(snapshot.ID)
	registry.UnitCompleted(snapshot.ID)
	registry.UnitFailed(snapshot.ID)

	current, err := registry.Get(snapshot.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Progress.Stage != "content" || current.Progress.Total != 4 {
		t.Fatalf("unexpected progress %+v", current.Progress)
	}
	if current.Progress.Completed != 2 || current.Progress.Failed != 1 {
		t.Fatalf("unexpected counters %+v", current.Progress)
	}

	registry.BeginStage(snapshot.ID, "images", 4)
	next, _ := registry.Get(snapshot.ID)
	if next.Progress.Completed != 0 || next.Progress.Stage != "images" {
		t.Fatalf("expected counters reset for new stage, got %+v", next.Progress)
	}
}

func TestGetUnknownJob(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	registry := NewRegistry()
	first, _ := registry.Dispatch(1, TypeGenerate, "", 0)
	registry.MarkCompleted(first.ID)
	second, _ := registry.Dispatch(1, TypeRegenerateSlide, "", 42)

	list := registry.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatal("expected newest-first ordering")
	}
	if list[0].SlideID != 42 {
		t.Fatalf("expected slide id recorded, got %+v", list[0])
	}
}

func TestConcurrentDispatchSingleWinner(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, _ := registry.Dispatch(7, TypeGenerate, "", 0)
			ids[i] = snapshot.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatal("concurrent dispatch must converge on one active job")
		}
	}
}
