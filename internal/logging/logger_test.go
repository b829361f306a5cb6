package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deckhand/internal/logging"
	"deckhand/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewForDirCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := logging.NewForDir(dir, "info", "json")
	if err != nil {
		t.Fatalf("NewForDir: %v", err)
	}
	logger.Info("hello", logging.String("component", "test"))

	data, err := os.ReadFile(filepath.Join(dir, "deckhand.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log output, got %q", string(data))
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-123")
	ctx = services.WithStage(ctx, "images")
	ctx = services.WithSlideID(ctx, 7)

	fields := logging.ContextFields(ctx)
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{logging.FieldJobID, logging.FieldStage, logging.FieldSlideID} {
		if !keys[want] {
			t.Errorf("missing context field %q", want)
		}
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("should not panic")
}
