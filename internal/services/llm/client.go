package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

const (
	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	defaultBaseURL     = "https://api.anthropic.com/v1/messages"
	defaultModel       = "claude-sonnet-4-5"
	defaultMaxTokens   = 4096
	defaultHTTPTimeout = 120 * time.Second

	// emptyReplyAttempts bounds how often a prompt is re-sent when the model
	// answers with no text.
	emptyReplyAttempts = 3
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	TimeoutSeconds int
}

// Client sends Messages API requests through a provider transport, so
// overload (529), rate limit and server errors share the sync engine's
// backoff and Retry-After handling.
type Client struct {
	cfg       Config
	transport *providers.Transport
}

// DefaultRetryPolicy is shorter than the provider default: the monitor runs
// once a day and a stalled model should fail the run rather than hold it.
func DefaultRetryPolicy() providers.RetryPolicy {
	return providers.RetryPolicy{MaxRetries: 4, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// NewClient constructs a client, filling unset fields with defaults. Options
// are applied after the defaults, so callers may override the retry policy,
// sleeper or HTTP client.
func NewClient(cfg Config, opts ...providers.TransportOption) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	base := []providers.TransportOption{
		providers.WithTimeout(timeout),
		providers.WithRetryPolicy(DefaultRetryPolicy()),
	}
	return &Client{
		cfg:       cfg,
		transport: providers.NewTransport("llm", append(base, opts...)...),
	}
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r messagesResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" || block.Type == "" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// CompleteJSON sends one system and one user prompt and returns the model's
// text reply, expected to be a JSON object.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case systemPrompt == "":
		return "", errors.New("llm complete: system prompt required")
	case userPrompt == "":
		return "", errors.New("llm complete: user prompt required")
	case c.cfg.APIKey == "":
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	req := providers.Request{
		Method:    http.MethodPost,
		URL:       c.cfg.BaseURL,
		Operation: "complete",
		Body: messagesRequest{
			Model:     c.cfg.Model,
			MaxTokens: c.cfg.MaxTokens,
			System:    systemPrompt + "\nRespond with a single JSON object and nothing else.",
			Messages:  []message{{Role: "user", Content: userPrompt}},
		},
		Sign: func(r *http.Request) error {
			r.Header.Set("x-api-key", c.cfg.APIKey)
			r.Header.Set("anthropic-version", APIVersion)
			return nil
		},
	}

	var stopReason string
	for attempt := 1; attempt <= emptyReplyAttempts; attempt++ {
		var resp messagesResponse
		if err := c.transport.DoJSON(ctx, req, &resp); err != nil {
			return "", err
		}
		if resp.Error != nil {
			return "", services.Wrap(services.ErrRejected, "llm", "complete",
				fmt.Sprintf("api error %s: %s", resp.Error.Type, resp.Error.Message), nil)
		}
		if text := resp.text(); text != "" {
			return text, nil
		}
		stopReason = resp.StopReason
	}
	return "", services.Wrap(services.ErrData, "llm", "complete",
		fmt.Sprintf("empty content after %d attempts (stop_reason=%q)", emptyReplyAttempts, stopReason), nil)
}

// HealthCheck issues a tiny request to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You are a health probe.", `Reply with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
