package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerNilHandlers(t *testing.T) {
	h := newFanoutHandler(nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Fatalf("expected NoopHandler for all nil handlers, got %T", h)
	}
}

func TestFanoutRespectsPerHandlerLevels(t *testing.T) {
	var file, console bytes.Buffer
	h := newFanoutHandler(
		newConsoleHandler(&file, slog.LevelDebug, false),
		newConsoleHandler(&console, slog.LevelWarn, false),
	)
	logger := slog.New(h).With(slog.String(FieldComponent, "warehouse"))
	logger.Debug("query")
	logger.Error("insert failed")

	if !strings.Contains(file.String(), "DEBUG warehouse: query") {
		t.Fatalf("file handler missing debug line: %q", file.String())
	}
	if strings.Contains(console.String(), "query") {
		t.Fatalf("console handler should drop debug: %q", console.String())
	}
	if !strings.Contains(console.String(), "ERROR warehouse: insert failed") {
		t.Fatalf("console handler missing error: %q", console.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled when any handler accepts the level")
	}
}

func TestFanoutRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newFanoutHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("dsn", "postgres://telco_sync:hunter2@db:5432/telco"))

	logger.Info("connect failed for postgres://telco_sync:hunter2@db/telco",
		slog.String("api_key", "sk-live"),
		slog.String("GITHUB_TOKEN", "ghp_x"),
		slog.Group("request", slog.String("authorization", "Bearer abc")),
		slog.Any("error", errors.New("dial postgres://u:pw@db failed")),
		slog.String("provider", "telnyx"),
	)

	out := buf.String()
	for _, secret := range []string{"hunter2", "sk-live", "ghp_x", "Bearer abc", ":pw@"} {
		if strings.Contains(out, secret) {
			t.Fatalf("secret %q leaked into %s", secret, out)
		}
	}
	for _, kept := range []string{`"provider":"telnyx"`, "telco_sync:[redacted]@db", `"api_key":"[redacted]"`} {
		if !strings.Contains(out, kept) {
			t.Fatalf("expected %s in %s", kept, out)
		}
	}
}
