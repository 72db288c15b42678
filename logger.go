package coldb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with coldb-specific context.
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

// WithColumn adds a column field to the logger.
func (l *Logger) WithColumn(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", name),
	}
}

// WithGeneration adds a generation field to the logger.
func (l *Logger) WithGeneration(gen uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", gen),
	}
}

// LogMutation logs one mutating operation.
func (l *Logger) LogMutation(ctx context.Context, op string, gen uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mutation failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "mutation committed",
			"op", op,
			"generation", gen,
		)
	}
}

// LogEmptyWrite logs a write with an empty effective index set, which is a
// documented no-op.
func (l *Logger) LogEmptyWrite(ctx context.Context, columnName string) {
	l.WarnContext(ctx, "write with empty index set ignored",
		"column", columnName,
	)
}

// LogFlush logs a snapshot flush.
func (l *Logger) LogFlush(ctx context.Context, filename string, gen uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"filename", filename,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "flush completed",
			"filename", filename,
			"generation", gen,
		)
	}
}

// LogCompact logs a compaction run.
func (l *Logger) LogCompact(ctx context.Context, blobsKept, blobsDropped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compaction completed",
			"blobs_kept", blobsKept,
			"blobs_dropped", blobsDropped,
		)
	}
}

// LogRecovery logs a journal recovery on open.
func (l *Logger) LogRecovery(ctx context.Context, entriesReplayed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "journal recovery failed",
			"entries_replayed", entriesReplayed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "journal recovery completed",
			"entries_replayed", entriesReplayed,
		)
	}
}
