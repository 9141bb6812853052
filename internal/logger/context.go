package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging fields for a single connection
// or operation, injected automatically by the *Ctx variants below.
type LogContext struct {
	ConnectionID string    // server-assigned connection identifier
	ClientID     int       // FSS ClientId (connection file descriptor)
	Kind         string    // wire message kind being processed (OPEN, WRITE, ...)
	Path         string    // file path the operation targets, if any
	StartTime    time.Time // for duration calculation
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}
