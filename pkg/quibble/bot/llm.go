// llm.go implements the completion client. It posts the conversation
// transcript to an OpenAI-compatible endpoint and extracts the assistant
// text, accepting both the chat-completion and legacy completion response
// shapes. Every failure kind maps to the same user-facing apology; only the
// logs distinguish them.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Completion failure kinds. All are non-fatal and map to one generic
// user-facing apology; the internal log carries the distinction.
var (
	// ErrInvalidJSON means the response body did not parse as JSON.
	ErrInvalidJSON = errors.New("completion response is not valid JSON")

	// ErrMalformedResponse means the JSON parsed but carried neither the
	// chat-completion nor the legacy completion shape.
	ErrMalformedResponse = errors.New("completion response missing expected fields")
)

// StatusError is returned for non-2xx responses from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.Code, e.Body)
}

// completionResponse covers both response shapes the endpoint may return:
// chat-completion (choices[0].message.content) and legacy (choices[0].text).
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		Text *string `json:"text"`
	} `json:"choices"`
}

// CompletionClient posts transcripts to the configured endpoint.
type CompletionClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCompletionClient creates a completion client from config.
// The HTTP timeout is defensive; the source behavior had none, but a hung
// endpoint should not pin a handler forever.
func NewCompletionClient(cfg *Config, logger *slog.Logger) *CompletionClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionClient{
		endpoint: cfg.API.URL,
		token:    cfg.API.Token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.With("component", "llm"),
	}
}

// Complete sends the request payload and returns the assistant text.
// No retries on any failure.
func (c *CompletionClient) Complete(ctx context.Context, payload CompletionRequest) (string, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("sending completion request",
		"endpoint", c.endpoint,
		"messages", len(payload.Messages),
		"max_tokens", payload.MaxTokens,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	text, ok := extractText(parsed)
	if !ok {
		return "", ErrMalformedResponse
	}

	c.logger.Info("completion done",
		"duration_ms", time.Since(start).Milliseconds(),
		"reply_len", len(text),
	)

	return text, nil
}

// extractText pulls the assistant text out of the response, trying the chat
// shape first and falling back to the legacy shape.
func extractText(resp completionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	choice := resp.Choices[0]
	if choice.Message.Content != nil {
		return *choice.Message.Content, true
	}
	if choice.Text != nil {
		return *choice.Text, true
	}
	return "", false
}

// truncate shortens s to at most n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
