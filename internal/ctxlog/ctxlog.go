// Package ctxlog carries a *slog.Logger through context.Context.
package ctxlog

import (
	"context"
	"log/slog"
)

// WithLogger returns a copy of ctx that carries logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx. A context without one yields a logger that
// discards everything, so library callers are never forced to configure logging.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return discard
}

type key struct{}

// unexported variables.
var (
	//nolint:gochecknoglobals // Context key
	loggerKey = key{}
	//nolint:gochecknoglobals // Shared no-op logger
	discard = slog.New(slog.DiscardHandler)
)
