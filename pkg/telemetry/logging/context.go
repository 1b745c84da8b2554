package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// RunIDKey is the context key for reconciliation run IDs.
	RunIDKey contextKey = "run_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRunID adds a reconciliation run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns logger (slog.Default() when nil) enriched with the
// identifiers carried by ctx.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}

func extractContextFields(ctx context.Context) []any {
	var fields []any
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	if id := GetRunID(ctx); id != "" {
		fields = append(fields, "run_id", id)
	}
	return fields
}
