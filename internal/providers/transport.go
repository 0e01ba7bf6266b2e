package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"telcosync/internal/logging"
	"telcosync/internal/services"
)

const (
	userAgent          = "telcosync/1.0"
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxRetries  = 6
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 60 * time.Second
	bodySnippetLimit   = 512
)

// RetryPolicy is exponential backoff with a factor of two.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns base 1s, cap 60s, six retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: defaultMaxRetries, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay}
}

// Delay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay/2 {
			delay = p.MaxDelay
			break
		}
		delay *= 2
	}
	return p.cap(delay)
}

func (p RetryPolicy) cap(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, snippet(e.Body))
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= http.StatusInternalServerError
}

// Request describes one provider call.
type Request struct {
	Method    string
	URL       string
	Query     url.Values
	Body      any
	Header    http.Header
	Operation string
	// Sign is invoked for every attempt after the URL is final.
	Sign func(*http.Request) error
}

// Transport issues provider requests with timeouts, retries and error mapping.
type Transport struct {
	provider    string
	client      *http.Client
	timeout     time.Duration
	policy      RetryPolicy
	minInterval time.Duration
	sleeper     func(context.Context, time.Duration) error
	logger      *slog.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy RetryPolicy) TransportOption {
	return func(t *Transport) {
		t.policy = policy
	}
}

// WithMinInterval spaces consecutive requests at least d apart.
func WithMinInterval(d time.Duration) TransportOption {
	return func(t *Transport) {
		t.minInterval = d
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) TransportOption {
	return func(t *Transport) {
		if sleeper != nil {
			t.sleeper = sleeper
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport builds a transport for provider.
func NewTransport(provider string, opts ...TransportOption) *Transport {
	t := &Transport{
		provider: provider,
		timeout:  defaultHTTPTimeout,
		policy:   DefaultRetryPolicy(),
		sleeper:  SleepWithContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	t.logger = logging.NewComponentLogger(t.logger, "provider."+provider)
	return t
}

// Provider returns the provider name the transport is bound to.
func (t *Transport) Provider() string {
	return t.provider
}

// DoJSON performs req and decodes a JSON response into out when out is non-nil.
func (t *Transport) DoJSON(ctx context.Context, req Request, out any) error {
	body, err := t.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrData, t.provider, req.Operation, "decode response: "+snippet(string(body)), err)
	}
	return nil
}

// Do performs req, retrying transport failures, 5xx and 429 responses. The
// returned error carries a services marker: ErrAuth, ErrNotFound,
// ErrRateLimited, ErrTransport, ErrTimeout or ErrRejected.
func (t *Transport) Do(ctx context.Context, req Request) ([]byte, error) {
	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, services.Wrap(services.ErrData, t.provider, req.Operation, "encode request", err)
		}
		payload = encoded
	}

	var lastErr error
	for attempt := 0; attempt <= t.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := t.policy.Delay(attempt)
			var statusErr *StatusError
			if errors.As(lastErr, &statusErr) && statusErr.RetryAfter > 0 {
				delay = t.policy.cap(statusErr.RetryAfter)
			}
			logging.WithContext(ctx, t.logger).Debug("retrying provider request",
				logging.String("operation", req.Operation),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(lastErr),
			)
			if err := t.sleeper(ctx, delay); err != nil {
				return nil, t.contextError(req.Operation, err)
			}
		}

		body, err := t.once(ctx, req, payload)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, t.contextError(req.Operation, ctx.Err())
		}
		lastErr = err
		if !t.retryable(err) {
			break
		}
	}
	return nil, t.classify(req.Operation, lastErr)
}

func (t *Transport) once(ctx context.Context, req Request, payload []byte) ([]byte, error) {
	if err := t.throttle(ctx); err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrRejected, t.provider, req.Operation, "build request", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Sign != nil {
		if err := req.Sign(httpReq); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, t.provider, req.Operation, "sign request", err)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &StatusError{
			Provider:   t.provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
			RetryAfter: retryAfter,
		}
	}
	return data, nil
}

func (t *Transport) throttle(ctx context.Context) error {
	if t.minInterval <= 0 {
		return nil
	}
	t.mu.Lock()
	wait := time.Until(t.lastSent.Add(t.minInterval))
	if wait < 0 {
		wait = 0
	}
	t.lastSent = time.Now().Add(wait)
	t.mu.Unlock()
	return SleepWithContext(ctx, wait)
}

func (t *Transport) retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.retryable()
	}
	// Network failures and per-request timeouts.
	return !errors.Is(err, services.ErrRejected) && !errors.Is(err, services.ErrConfiguration)
}

func (t *Transport) classify(op string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden:
			return services.Wrap(services.ErrAuth, t.provider, op, "credentials rejected", err)
		case statusErr.StatusCode == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, t.provider, op, "", err)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, t.provider, op, "retries exhausted", err)
		case statusErr.retryable():
			return services.Wrap(services.ErrTransport, t.provider, op, "retries exhausted", err)
		default:
			return services.Wrap(services.ErrRejected, t.provider, op, "", err)
		}
	}
	if errors.Is(err, services.ErrRejected) || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return services.Wrap(services.ErrTransport, t.provider, op, "request failed", err)
}

func (t *Transport) contextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, t.provider, op, "resource budget exhausted", err)
	}
	return err
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter accepts delta-seconds or an HTTP date.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func snippet(body string) string {
	clean := strings.Join(strings.Fields(body), " ")
	if clean == "" {
		return "<empty>"
	}
	if len(clean) > bodySnippetLimit {
		return clean[:bodySnippetLimit] + "..."
	}
	return clean
}
