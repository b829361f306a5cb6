package textgen

import (
	"bytes"
	"context"
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

// Client calls an OpenAI-compatible chat completions endpoint and returns
// the raw assistant text. Each call is single-shot: attempt budgets and
// backoff belong to the caller.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
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

// NewClient builds a text client from configuration.
func NewClient(cfg config.TextService, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "textgen", "new_client",
			"text service API key is not configured", nil)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "textgen", "new_client",
			"text service base URL is not configured", nil)
	}
	client := &Client{
		endpoint: strings.TrimSpace(cfg.BaseURL),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		// A per-call timeout is a normal, retryable failure; only caller
		// cancellation above aborts outright.
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "textgen", "complete",
				"request timed out", err)
		}
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(raw), 200)), nil)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"decode response", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			decoded.Error.Message, nil)
	}
	if len(decoded.Choices) == 0 {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"response contained no choices", nil)
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", services.Wrap(services.ErrExternalService, "textgen", "complete",
			"response contained empty content", nil)
	}
	return content, nil
}

// CompleteJSON runs Complete and decodes the reply into out, tolerating
// markdown fences and prose around the JSON document.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	content, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	if err := DecodeModelJSON(content, out); err != nil {
		return services.Wrap(services.ErrExternalService, "textgen", "complete_json",
			"model returned malformed JSON", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
