package logging

import (
	"context"
	"log/slog"

	"telcosync/internal/services"
)

const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldProvider  = "provider"
	FieldResource  = "resource"
	FieldWorkspace = "workspace_id"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if provider, ok := services.ProviderFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProvider, provider))
	}
	if resource, ok := services.ResourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldResource, resource))
	}
	if ws, ok := services.WorkspaceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkspace, ws))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
