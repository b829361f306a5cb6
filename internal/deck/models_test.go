package deck_test

import (
	"testing"

	"deckhand/internal/deck"
)

func TestParseSlideStatus(t *testing.T) {
	status, ok := deck.ParseSlideStatus(" Generating_Image ")
	if !ok || status != deck.StatusGeneratingImage {
		t.Fatalf("expected generating_image, got %q (%v)", status, ok)
	}
	if _, ok := deck.ParseSlideStatus("rendering"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := deck.ParseSlideStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to deck.SlideStatus
		want     bool
	}{
		{deck.StatusPending, deck.StatusGeneratingText, true},
		{deck.StatusGeneratingText, deck.StatusTextReady, true},
		{deck.StatusTextReady, deck.StatusGeneratingImage, true},
		{deck.StatusGeneratingImage, deck.StatusReady, true},
		{deck.StatusGeneratingText, deck.StatusError, true},
		{deck.StatusError, deck.StatusGeneratingImage, true},
		{deck.StatusPending, deck.StatusReady, false},
		{deck.StatusGeneratingImage, deck.StatusGeneratingImage, false},
		{deck.StatusPending, deck.StatusGeneratingImage, true},
		{deck.StatusGeneratingText, deck.StatusGeneratingImage, true},
		{deck.StatusGeneratingImage, deck.StatusGeneratingText, false},
	}
	for _, tc := range cases {
		if got := deck.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !deck.IsTerminal(deck.StatusReady) || !deck.IsTerminal(deck.StatusError) {
		t.Fatal("ready and error are terminal")
	}
	if deck.IsTerminal(deck.StatusTextReady) {
		t.Fatal("text_ready is not terminal")
	}
}
