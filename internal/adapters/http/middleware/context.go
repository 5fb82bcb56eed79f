// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import "context"

type contextKey string

const (
	ctxKeyRequestID     contextKey = "request_id"
	ctxKeyCorrelationID contextKey = "correlation_id"
	ctxKeySessionID     contextKey = "session_id"
)

// RequestIDFromContext returns the request ID stored in ctx, or "".
// Client adapters use it to propagate the ID downstream.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyRequestID)
}

// CorrelationIDFromContext returns the correlation ID stored in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyCorrelationID)
}

// SessionIDFromContext returns the visitor session ID stored in ctx, or "".
func SessionIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeySessionID)
}

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation ID in the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// ContextWithSessionID stores a session ID in the context.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	if id, ok := ctx.Value(key).(string); ok {
		return id
	}

	return ""
}
