package readmany

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with readmany-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContainer adds the container id to the logger.
func (l *Logger) WithContainer(container string) *Logger {
	return &Logger{
		Logger: l.Logger.With("container", container),
	}
}

// WithActivityID adds the activity id correlating one read-many call.
func (l *Logger) WithActivityID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("activity_id", id),
	}
}

// WithPartition adds a physical partition id to the logger.
func (l *Logger) WithPartition(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", id),
	}
}

// LogReadMany logs one completed read-many call.
func (l *Logger) LogReadMany(ctx context.Context, requested, returned, missing int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read-many failed",
			"requested", requested,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read-many completed",
			"requested", requested,
			"returned", returned,
			"missing", missing,
		)
	}
}

// LogChunk logs one executed chunk operation.
func (l *Logger) LogChunk(ctx context.Context, partition, shape string, items int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk failed",
			"partition", partition,
			"shape", shape,
			"items", items,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "chunk completed",
			"partition", partition,
			"shape", shape,
			"items", items,
		)
	}
}

// LogResolutionFailure logs an item whose partition could not be resolved.
func (l *Logger) LogResolutionFailure(ctx context.Context, itemID string, err error) {
	l.WarnContext(ctx, "partition resolution failed",
		"item_id", itemID,
		"error", err,
	)
}
