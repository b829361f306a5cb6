package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/services"
)

// Client calls the Gemini generateContent endpoint for slide images.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	aspectRatio string
	httpClient  *http.Client
}

// Result is one generated image plus its provenance. RawRequest and
// RawResponse are safe to persist: inline image payloads are elided.
type Result struct {
	Bytes       []byte
	MimeType    string
	RawRequest  string
	RawResponse string
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the transport. Used by tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds an image client from configuration.
func NewClient(cfg config.ImageService, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "imagegen", "new_client",
			"image service API key is not configured", nil)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "imagegen", "new_client",
			"image service base URL is not configured", nil)
	}
	client := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       strings.TrimSpace(cfg.Model),
		aspectRatio: strings.TrimSpace(cfg.AspectRatio),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Generate requests one image for the prompt. A response with no inline
// image data is an error even when the HTTP call succeeded.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, services.Wrap(services.ErrValidation, "imagegen", "generate",
			"image prompt is empty", nil)
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"IMAGE"},
		},
	}
	if c.aspectRatio != "" {
		payload["generationConfig"].(map[string]any)["imageConfig"] = map[string]any{
			"aspectRatio": c.aspectRatio,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"encode request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "imagegen", "generate",
				"request timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(raw)
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, snippet), nil)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"decode response", err)
	}
	data, mimeType, found := findInlineImage(tree)
	if !found {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"no image data in response", nil)
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"decode image payload", err)
	}
	if len(decoded) == 0 {
		return nil, services.Wrap(services.ErrExternalService, "imagegen", "generate",
			"no image data in response", nil)
	}

	return &Result{
		Bytes:       decoded,
		MimeType:    mimeType,
		RawRequest:  string(body),
		RawResponse: elideInlineData(tree),
	}, nil
}

// findInlineImage walks the untyped response tree for the first inlineData
// (or camel-less inline_data) node carrying base64 payload. Providers move
// these nodes around between releases, so depth matters less than presence.
func findInlineImage(node any) (data, mimeType string, found bool) {
	switch value := node.(type) {
	case map[string]any:
		for _, key := range []string{"inlineData", "inline_data"} {
			inline, ok := value[key].(map[string]any)
			if !ok {
				continue
			}
			payload, _ := inline["data"].(string)
			if strings.TrimSpace(payload) == "" {
				continue
			}
			mime, _ := inline["mimeType"].(string)
			if mime == "" {
				mime, _ = inline["mime_type"].(string)
			}
			return payload, mime, true
		}
		for _, child := range value {
			if d, m, ok := findInlineImage(child); ok {
				return d, m, true
			}
		}
	case []any:
		for _, child := range value {
			if d, m, ok := findInlineImage(child); ok {
				return d, m, true
			}
		}
	}
	return "", "", false
}

// elideInlineData re-renders the response tree with base64 payloads replaced
// by a placeholder so provenance rows stay small.
func elideInlineData(node any) string {
	elided := elideNode(node)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(elided); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}

func elideNode(node any) any {
	switch value := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, child := range value {
			if key == "inlineData" || key == "inline_data" {
				if inline, ok := child.(map[string]any); ok {
					copied := make(map[string]any, len(inline))
					for k, v := range inline {
						if k == "data" {
							copied[k] = "<elided>"
							continue
						}
						copied[k] = v
					}
					out[key] = copied
					continue
				}
			}
			out[key] = elideNode(child)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, child := range value {
			out[i] = elideNode(child)
		}
		return out
	default:
		return node
	}
}
