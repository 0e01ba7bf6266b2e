package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telcosync/internal/config"
)

// LogFileName is the run log written into the configured log directory.
const LogFileName = "telcosync.log"

// Options describes logger construction parameters.
type Options struct {
	Level        string
	Format       string
	FilePath     string
	Console      io.Writer
	ConsoleLevel string
	AddSource    bool
}

// New constructs a slog logger using the provided options. The returned closer
// releases the log file, if one was opened.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)
	addSource := opts.AddSource || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, nil, err
		}
		closer = file
		handlers = append(handlers, newHandler(format, file, level, addSource))
	}

	if opts.Console != nil {
		consoleLevel := level
		if strings.TrimSpace(opts.ConsoleLevel) != "" {
			if cl := parseLevel(opts.ConsoleLevel); cl > consoleLevel {
				consoleLevel = cl
			}
		}
		handlers = append(handlers, newConsoleHandler(opts.Console, consoleLevel, false))
	}

	return slog.New(newFanoutHandler(handlers...)), closer, nil
}

// NewFromConfig creates the run logger: the log file receives everything at the
// configured level, stderr only receives warnings and errors.
func NewFromConfig(cfg *config.Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Console: stderr, ConsoleLevel: "warn"})
	}
	opts := Options{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Console:      stderr,
		ConsoleLevel: "warn",
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, LogFileName)
	}
	return New(opts)
}

func newHandler(format string, w io.Writer, level slog.Level, addSource bool) slog.Handler {
	if format == "json" {
		return newJSONHandler(w, level, addSource)
	}
	return newConsoleHandler(w, level, addSource)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}
