package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/retry"
	"deckhand/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.TextService{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "test-model",
		TimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func chatReply(content string) []byte {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestCompleteSendsAuthAndModel(t *testing.T) {
	var gotAuth, gotModel string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		w.Write(chatReply("hello"))
	})

	content, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "hello" {
		t.Fatalf("unexpected content %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "test-model" {
		t.Fatalf("unexpected model %q", gotModel)
	}
}

func TestCompleteRejectsNon200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteJSONToleratesFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply("```json\n{\"title\":\"Intro\"}\n```"))
	})

	var out struct {
		Title string `json:"title"`
	}
	if err := client.CompleteJSON(context.Background(), "system", "user", &out); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out.Title != "Intro" {
		t.Fatalf("unexpected title %q", out.Title)
	}
}

func TestCompletePropagatesCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, "system", "user")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCompleteClassifiesPerCallTimeout(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// Drain the body so the server can observe the client disconnect
		// and cancel the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	client, err := NewClient(config.TextService{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	}, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Complete(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout for a timed-out call, got %v", err)
	}

	// A timed-out call is a normal failure: it must consume one attempt,
	// not the whole budget.
	hits.Store(0)
	exec := retry.New("style generation", retry.WithSleeper(func(time.Duration) {}))
	err = exec.Execute(context.Background(), 3, func(ctx context.Context, attempt int) error {
		_, err := client.Complete(ctx, "system", "user")
		return err
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout after exhaustion, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 attempts for a timed-out call, got %d", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.TextService{BaseURL: "http://localhost"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{"plain", `{"k":"v"}`, "v", false},
		{"fenced", "```json\n{\"k\":\"v\"}\n```", "v", false},
		{"prose", "Here is the outline:\n{\"k\":\"v\"}\nHope that helps!", "v", false},
		{"nested braces in strings", `{"k":"a { b } v"}`, "a { b } v", false},
		{"empty", "   ", "", true},
		{"no json", "sorry, I cannot do that", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out map[string]string
			err := DecodeModelJSON(tc.input, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out["k"] != tc.wantKey {
				t.Fatalf("expected %q, got %q", tc.wantKey, out["k"])
			}
		})
	}
}
