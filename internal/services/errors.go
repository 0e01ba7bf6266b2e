package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrTransport           = errors.New("transport error")
	ErrAuth                = errors.New("authentication error")
	ErrRateLimited         = errors.New("rate limited")
	ErrNotFound            = errors.New("not found")
	ErrData                = errors.New("data error")
	ErrSchema              = errors.New("schema error")
	ErrClassification      = errors.New("classification error")
	ErrTimeout             = errors.New("timeout")
	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrLocked              = errors.New("run lock held")
	ErrUnsupported         = errors.New("unsupported operation")
	ErrRejected            = errors.New("request rejected")
)

// Sync log statuses persisted for every (provider, resource) unit.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Exit codes returned by the CLI.
const (
	ExitOK            = 0
	ExitPartial       = 1
	ExitConfiguration = 2
	ExitDatabase      = 3
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the failure is worth another attempt with backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// SyncStatus maps a unit outcome to the sync_log status column.
func SyncStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusError
	}
}

// ExitCode maps a command failure to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrDatabaseUnavailable):
		return ExitDatabase
	default:
		return ExitPartial
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
