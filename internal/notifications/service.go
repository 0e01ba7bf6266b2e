package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"telcosync/internal/config"
	"telcosync/internal/services"
)

const (
	userAgent = "telcosync/1.0"
	// Source identifies this system in every payload.
	Source = "telcosync-api-monitor"
)

// Message is one notification.
type Message struct {
	Subject        string
	BodyHTML       string
	ChangeCount    int
	ActionRequired bool
}

// Service sends notifications.
type Service interface {
	Notify(ctx context.Context, msg Message) error
	TestNotification(ctx context.Context) error
}

// Payload is the JSON document posted to the webhook.
type Payload struct {
	To             string `json:"to"`
	Subject        string `json:"subject"`
	BodyHTML       string `json:"body_html"`
	Source         string `json:"source"`
	Timestamp      string `json:"timestamp"`
	ChangeCount    int    `json:"change_count"`
	ActionRequired bool   `json:"action_required"`
}

// NewService builds a webhook notifier from the monitor settings. A noop
// service is returned when no webhook URL is configured.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Monitor.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Monitor.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhookService{
		endpoint: endpoint,
		to:       strings.TrimSpace(cfg.Monitor.NotifyTo),
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

type webhookService struct {
	endpoint string
	to       string
	client   *http.Client
	now      func() time.Time
}

func (w *webhookService) Notify(ctx context.Context, msg Message) error {
	return w.send(ctx, Payload{
		To:             w.to,
		Subject:        strings.TrimSpace(msg.Subject),
		BodyHTML:       msg.BodyHTML,
		Source:         Source,
		Timestamp:      w.now().UTC().Format(time.RFC3339),
		ChangeCount:    msg.ChangeCount,
		ActionRequired: msg.ActionRequired,
	})
}

func (w *webhookService) TestNotification(ctx context.Context) error {
	return w.Notify(ctx, Message{
		Subject:  "telcosync - test notification",
		BodyHTML: "<p>Notification webhook test from the telcosync API monitor.</p>",
	})
}

func (w *webhookService) send(ctx context.Context, payload Payload) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "notifications", "send", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrTransport, "notifications", "send",
			fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Notify(context.Context, Message) error  { return nil }
func (noopService) TestNotification(context.Context) error { return nil }
