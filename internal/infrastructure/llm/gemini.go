package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

// Part is one element of a generateContent request: plain text or inline media.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded media next to the prompt.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// GeminiClient calls the Generative Language generateContent endpoint, retrying
// rate-limit (429) and overload (503) answers with doubling backoff.
type GeminiClient struct {
	endpoint    string
	apiKey      string
	maxAttempts int
	baseBackoff time.Duration
	httpClient  *http.Client
	sleep       SleepFunc
	logger      *slog.Logger
}

// Option customizes a GeminiClient.
type Option func(*GeminiClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *GeminiClient) { c.httpClient = client }
}

// WithSleep replaces the backoff wait, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *GeminiClient) { c.sleep = fn }
}

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.GeminiConfig, logger *slog.Logger, opts ...Option) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &GeminiClient{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		httpClient:  &http.Client{Timeout: timeout},
		sleep:       sleepContext,
		logger:      logger.With("component", "gemini"),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *GeminiClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.endpoint != ""
}

// GenerateContent sends the parts as a single user turn and returns the first candidate's text.
func (c *GeminiClient) GenerateContent(ctx context.Context, model string, parts []Part) (string, error) {
	if !c.Configured() {
		return "", &domain.ModelError{Err: fmt.Errorf("gemini api key: %w", domain.ErrNotConfigured)}
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Role: "user", Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal gemini payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, model, url.QueryEscape(c.apiKey))

	delay := c.baseBackoff
	lastStatus := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		status, payload, err := c.post(ctx, endpoint, body)
		if err != nil {
			return "", &domain.ModelError{Attempts: attempt, Err: err}
		}

		switch {
		case status == http.StatusOK:
			return decodeText(payload, attempt)
		case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
			lastStatus = status
			if attempt == c.maxAttempts {
				break
			}
			c.logger.Warn("gemini busy, retrying",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"status", status,
				"delay", delay,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return "", &domain.ModelError{Status: status, Attempts: attempt, Err: err}
			}
			delay *= 2
		default:
			return "", &domain.ModelError{
				Status:   status,
				Attempts: attempt,
				Err:      fmt.Errorf("gemini error %d: %s", status, snippet(payload)),
			}
		}
	}

	return "", &domain.ModelError{Status: lastStatus, Attempts: c.maxAttempts, Exhausted: true}
}

func (c *GeminiClient) post(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read gemini response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func decodeText(payload []byte, attempt int) (string, error) {
	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", &domain.ModelError{Status: http.StatusOK, Attempts: attempt, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(parsed.Candidates) > 0 && len(parsed.Candidates[0].Content.Parts) > 0 {
		if text := parsed.Candidates[0].Content.Parts[0].Text; text != "" {
			return text, nil
		}
	}

	reason := "unexpected response structure"
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		reason = parsed.PromptFeedback.BlockReason
	}
	return "", &domain.ModelError{Status: http.StatusOK, Attempts: attempt, BlockReason: reason}
}

func snippet(payload []byte) string {
	const limit = 1024
	if len(payload) > limit {
		payload = payload[:limit]
	}
	return strings.TrimSpace(string(payload))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stripCodeFence removes the ```json fences models like to wrap JSON answers in.
func stripCodeFence(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
