package logging

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[redacted]"

// urlPassword matches the password of a URL userinfo such as a Postgres DSN.
var urlPassword = regexp.MustCompile(`(://[^:/@\s]+:)[^@\s]+@`)

// fanoutHandler writes every record to each sink that accepts its level.
// Credential-bearing attributes are masked once, before any sink sees them.
type fanoutHandler struct {
	sinks []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	var sinks []slog.Handler
	for _, h := range handlers {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	if len(sinks) == 0 {
		return NoopHandler{}
	}
	return &fanoutHandler{sinks: sinks}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, redactString(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})

	var errs []error
	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, clean.Level) {
			continue
		}
		if err := sink.Handle(ctx, clean.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithAttrs(clean)
	}
	return &fanoutHandler{sinks: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		next[i] = sink.WithGroup(name)
	}
	return &fanoutHandler{sinks: next}
}

func redactAttr(a slog.Attr) slog.Attr {
	if isSecretKey(a.Key) {
		return slog.String(a.Key, redacted)
	}
	value := a.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, redactString(value.String()))
	case slog.KindGroup:
		group := value.Group()
		out := make([]slog.Attr, len(group))
		for i, member := range group {
			out[i] = redactAttr(member)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return slog.String(a.Key, redactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: value}
}

func redactString(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPassword.ReplaceAllString(s, "${1}"+redacted+"@")
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	switch key {
	case "api_key", "api_secret", "secret", "token", "password", "authorization", "x-api-key":
		return true
	}
	return strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "_password") || strings.HasSuffix(key, "_secret")
}
