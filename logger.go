package kvcachego

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with cache-specific helpers so call sites log
// operations with consistent field names.
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
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithModel adds a model field to the logger.
func (l *Logger) WithModel(modelID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", modelID),
	}
}

// WithBlock adds an object key field to the logger.
func (l *Logger) WithBlock(objectKey string) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", objectKey),
	}
}

// LogStore logs a block store attempt.
func (l *Logger) LogStore(ctx context.Context, objectKey string, size int, ok bool) {
	if !ok {
		l.WarnContext(ctx, "store failed",
			"block", objectKey,
			"size", size,
		)
	} else {
		l.DebugContext(ctx, "store completed",
			"block", objectKey,
			"size", size,
		)
	}
}

// LogLoad logs a block load attempt.
func (l *Logger) LogLoad(ctx context.Context, objectKey string, size int, ok bool) {
	if !ok {
		l.DebugContext(ctx, "load missed",
			"block", objectKey,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"block", objectKey,
			"size", size,
		)
	}
}

// LogEviction logs one eviction drain cycle.
func (l *Logger) LogEviction(ctx context.Context, blocks int, bytesFreed uint64) {
	l.InfoContext(ctx, "eviction drained",
		"blocks", blocks,
		"bytes_freed", bytesFreed,
	)
}
