package services

import "context"

type contextKey string

const (
	resourceIDKey contextKey = "resource_id"
	transitionKey contextKey = "transition"
	requestIDKey  contextKey = "request_id"
)

// WithResourceID annotates context with the channel id of the record being handled.
func WithResourceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, resourceIDKey, id)
}

// ResourceIDFromContext extracts the resource id if present.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(resourceIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTransition annotates context with the transition name.
func WithTransition(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, transitionKey, name)
}

// TransitionFromContext returns the transition name if present.
func TransitionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(transitionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
