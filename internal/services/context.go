package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	providerKey  contextKey = "provider"
	resourceKey  contextKey = "resource"
	workspaceKey contextKey = "workspace"
)

// WithRunID annotates context with the sync run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithProvider annotates context with the provider name.
func WithProvider(ctx context.Context, provider string) context.Context {
	if provider == "" {
		return ctx
	}
	return context.WithValue(ctx, providerKey, provider)
}

// ProviderFromContext returns the provider name if present.
func ProviderFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, providerKey)
}

// WithResource annotates context with the resource kind being synchronised.
func WithResource(ctx context.Context, resource string) context.Context {
	if resource == "" {
		return ctx
	}
	return context.WithValue(ctx, resourceKey, resource)
}

// ResourceFromContext returns the resource kind if present.
func ResourceFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, resourceKey)
}

// WithWorkspace annotates context with a Retell workspace id.
func WithWorkspace(ctx context.Context, workspace string) context.Context {
	if workspace == "" {
		return ctx
	}
	return context.WithValue(ctx, workspaceKey, workspace)
}

// WorkspaceFromContext returns the Retell workspace id if present.
func WorkspaceFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, workspaceKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
