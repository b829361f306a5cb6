package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.ImageService{
		APIKey:         "image-key",
		BaseURL:        server.URL,
		Model:          "test-image-model",
		AspectRatio:    "16:9",
		TimeoutSeconds: 5,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func inlineResponse(data string) string {
	return fmt.Sprintf(`{
        "candidates": [{
            "content": {
                "parts": [
                    {"text": "here is your image"},
                    {"inlineData": {"mimeType": "image/png", "data": %q}}
                ]
            }
        }]
    }`, data)
}

func TestGenerateDecodesInlineImage(t *testing.T) {
	imageBytes := []byte("fake-png-bytes")
	encoded := base64.StdEncoding.EncodeToString(imageBytes)

	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Write([]byte(inlineResponse(encoded)))
	})

	result, err := client.Generate(context.Background(), "a bar chart")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(result.Bytes) != string(imageBytes) {
		t.Fatalf("unexpected image bytes %q", result.Bytes)
	}
	if result.MimeType != "image/png" {
		t.Fatalf("unexpected mime type %q", result.MimeType)
	}
	if gotPath != "/models/test-image-model:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "image-key" {
		t.Fatalf("unexpected api key header %q", gotKey)
	}
}

func TestGenerateSendsAspectRatio(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("x"))
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(inlineResponse(encoded)))
	})

	if _, err := client.Generate(context.Background(), "a chart"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	genConfig, _ := body["generationConfig"].(map[string]any)
	imageConfig, _ := genConfig["imageConfig"].(map[string]any)
	if imageConfig["aspectRatio"] != "16:9" {
		t.Fatalf("expected aspect ratio in request, got %v", body)
	}
}

func TestGenerateFindsDeeplyNestedImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("deep"))
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
            "outer": {"wrapped": [{"layers": {"more": [
                {"inline_data": {"mime_type": "image/webp", "data": %q}}
            ]}}]}
        }`, encoded)
	})

	result, err := client.Generate(context.Background(), "nested")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(result.Bytes) != "deep" || result.MimeType != "image/webp" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestGenerateRejectsMissingImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no image for you"}]}}]}`))
	})

	_, err := client.Generate(context.Background(), "a chart")
	if err == nil || !strings.Contains(err.Error(), "no image data in response") {
		t.Fatalf("expected no-image error, got %v", err)
	}
}

func TestGenerateRejectsNon200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), "a chart")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestGenerateElidesBase64FromProvenance(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("a large image payload"))
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(inlineResponse(encoded)))
	})

	result, err := client.Generate(context.Background(), "a chart")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(result.RawResponse, encoded) {
		t.Fatal("expected base64 payload to be elided from provenance")
	}
	if !strings.Contains(result.RawResponse, "<elided>") {
		t.Fatalf("expected elision marker in provenance, got %s", result.RawResponse)
	}
	if !strings.Contains(result.RawRequest, "a chart") {
		t.Fatalf("expected prompt in raw request, got %s", result.RawRequest)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	})

	_, err := client.Generate(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
