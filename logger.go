package campie

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with campie-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithModel adds the model name to the logger.
func (l *Logger) WithModel(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", name),
	}
}

// WithArrays adds the array count to the logger.
func (l *Logger) WithArrays(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("arrays", n),
	}
}

// WithFeatures adds a features field to the logger.
func (l *Logger) WithFeatures(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("features", n),
	}
}

// LogBuild logs the construction of an ensemble.
func (l *Logger) LogBuild(ctx context.Context, arrays, rows int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"arrays", arrays,
		"rows", rows,
		"duration", d,
	)
}

// LogRun logs a completed batch run.
func (l *Logger) LogRun(ctx context.Context, queries, chunks, chunkSize int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"queries", queries,
			"chunk_size", chunkSize,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "run completed",
		"queries", queries,
		"chunks", chunks,
		"chunk_size", chunkSize,
		"duration", d,
	)
}

// LogChunk logs one processed chunk.
func (l *Logger) LogChunk(ctx context.Context, index, offset, size int, bytes int64, d time.Duration) {
	l.DebugContext(ctx, "chunk completed",
		"index", index,
		"offset", offset,
		"size", size,
		"bytes", bytes,
		"duration", d,
	)
}

// LogSave logs a persistence operation.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "ensemble saved",
		"name", name,
	)
}
