package services_test

import (
	"errors"
	"testing"

	"deckhand/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "outline", "parse", "empty outline", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := services.Details(err).Message; got != "outline: parse: empty outline" {
		t.Fatalf("unexpected details: %q", got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "images", "generate", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"validation", services.Wrap(services.ErrValidation, "outline", "", "bad schema", nil), true},
		{"not_found", services.Wrap(services.ErrNotFound, "content", "", "no outline", nil), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "style", "", "missing key", nil), true},
		{"external", services.Wrap(services.ErrExternalService, "images", "", "http 500", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "content", "", "deadline", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Errorf("%s: IsFatal = %v, want %v", tc.name, got, tc.fatal)
		}
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrExternalService, "images", "generate", "no image data in response", nil)
	details := services.Details(err)
	if details.Message != "images: generate: no image data in response" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
}
