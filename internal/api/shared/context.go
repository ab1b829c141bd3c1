// Package shared provides helpers common to all API handlers.
package shared

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys defined in this package.
type contextKey string

const (
	// UserIDContextKey is the context key for the authenticated user's ID.
	UserIDContextKey contextKey = "user_id"

	// TraceIDContextKey is the context key for the request trace ID.
	TraceIDContextKey contextKey = "trace_id"
)

// WithUserID returns a context carrying the authenticated user's ID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext extracts the authenticated user's ID from the context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// WithTraceID returns a context carrying the request trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the trace ID from the context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDContextKey).(string)
	return traceID
}
