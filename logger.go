package varpack

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with varpack-specific context.
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

// WithDir adds a pack directory field to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, dir string, arrays, opaques int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"dir", dir,
			"arrays", arrays,
			"opaques", opaques,
		)
	}
}

// LogLoad logs a load operation, including the logical paths that were
// reattached as memory-mapped views.
func (l *Logger) LogLoad(ctx context.Context, dir string, mapped []string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"dir", dir,
			"mapped", mapped,
		)
	}
}

// LogCopy logs a pack replication operation.
func (l *Logger) LogCopy(ctx context.Context, dir string, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "copy failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "copy completed",
			"dir", dir,
			"files", files,
		)
	}
}
