package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const loggerKey contextKey = iota

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithField adds a single field to the logger in the context.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := FromContext(ctx).With()
	logger = addField(logger, key, value)
	l := logger.Logger()
	return WithLogger(ctx, &l)
}

// WithFields adds structured fields to the logger in the context.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := FromContext(ctx).With()
	for key, value := range fields {
		logger = addField(logger, key, value)
	}
	l := logger.Logger()
	return WithLogger(ctx, &l)
}

// WithPhase tags log lines with the sync phase (extract, departments, users).
func WithPhase(ctx context.Context, phase string) context.Context {
	return WithField(ctx, "phase", phase)
}

// WithTarget tags log lines with the target adapter name.
func WithTarget(ctx context.Context, target string) context.Context {
	return WithField(ctx, "target", target)
}

// WithRun tags log lines with the run id and dry-run flag.
func WithRun(ctx context.Context, runID string, dryRun bool) context.Context {
	return WithFields(ctx, map[string]any{"run_id": runID, "dry_run": dryRun})
}

// WithDepartment adds department context to the logger.
func WithDepartment(ctx context.Context, deptID string) context.Context {
	return WithField(ctx, "dept_id", deptID)
}

// WithUser adds user context to the logger.
func WithUser(ctx context.Context, userID string) context.Context {
	return WithField(ctx, "user_id", userID)
}
