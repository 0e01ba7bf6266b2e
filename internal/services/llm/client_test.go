package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/services"
)

func textReply(text string) map[string]any {
	return map[string]any{
		"content":     []any{map[string]any{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	}
}

func noSleep() providers.TransportOption {
	return providers.WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func TestCompleteJSONSendsMessagesRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("x-api-key") != "test" || r.Header.Get("anthropic-version") != APIVersion {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "demo-model" || req.MaxTokens != 512 || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.HasPrefix(req.System, "analyse") {
			t.Errorf("system prompt not forwarded: %q", req.System)
		}
		_ = json.NewEncoder(w).Encode(textReply(`{"summary":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxTokens: 512})
	content, err := client.CompleteJSON(context.Background(), "analyse the diff", "diff body")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(textReply("```json\n{\"ok\":true}\n```"))
	}))
	defer server.Close()

	if err := NewClient(Config{APIKey: "test", BaseURL: server.URL}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	err := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, noSleep()).HealthCheck(context.Background())
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("auth failures must not be retried, got %d calls", calls)
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	_, err := NewClient(Config{}).CompleteJSON(context.Background(), "s", "u")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRetriesOverloadedWithRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(529)
			return
		}
		_ = json.NewEncoder(w).Encode(textReply(`{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		providers.WithSleeper(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if calls != 2 || len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("calls=%d slept=%v", calls, slept)
	}
}

func TestEmptyContentRetriedThenReported(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []any{}, "stop_reason": "max_tokens"})
	}))
	defer server.Close()

	_, err := NewClient(Config{APIKey: "test", BaseURL: server.URL}, noSleep()).CompleteJSON(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "max_tokens") {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if calls != emptyReplyAttempts {
		t.Fatalf("expected %d attempts, got %d", emptyReplyAttempts, calls)
	}
	if !errors.Is(err, services.ErrData) {
		t.Fatalf("expected data marker, got %v", err)
	}
}

func TestServerErrorsExhaustRetryPolicy(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	policy := providers.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	_, err := NewClient(Config{APIKey: "test", BaseURL: server.URL}, noSleep(), providers.WithRetryPolicy(policy)).
		CompleteJSON(context.Background(), "s", "u")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain", `{"ok":true}`, false},
		{"fenced", "```json\n{\"ok\":true}\n```", false},
		{"prose", "Here is the analysis:\n{\"ok\":true}\nThanks.", false},
		{"empty", "  ", true},
		{"garbage", "no json here", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				OK bool `json:"ok"`
			}
			err := DecodeJSON(tc.content, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil || !out.OK {
				t.Fatalf("DecodeJSON = %v, %+v", err, out)
			}
		})
	}
}
