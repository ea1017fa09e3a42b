// Package logger carries the boot run's slog.Logger through context.Context
// and builds the handlers behind it: stdout in text or JSON, the OTel bridge,
// and one log file per application on the storage medium.
//
// A boot run attaches its session_id with With; the launcher adds AppKey the
// same way, so packages further down only ever call FromContext.
package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// AddToContext adds a logger to the context
func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or returns default
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With derives a logger carrying args from the one in ctx and stores it back.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	log := FromContext(ctx).With(args...)
	return AddToContext(ctx, log), log
}
