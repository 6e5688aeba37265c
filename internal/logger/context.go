package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithFields returns a context whose logger carries the given fields.
// The base logger comes from the context, falling back to base.
func WithFields(ctx context.Context, base *zap.Logger, fields ...zap.Field) context.Context {
	l, ok := LoggerFromContext(ctx)
	if !ok {
		l = base
	}
	if l == nil {
		l = zap.NewNop()
	}
	return ContextWithLogger(ctx, l.With(fields...))
}

// LoggerFromContext extracts a logger from the context and reports whether one was set.
func LoggerFromContext(ctx context.Context) (*zap.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return l, ok && l != nil
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := LoggerFromContext(ctx); ok {
		return l
	}
	return zap.NewNop()
}
