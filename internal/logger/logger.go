// Package logger wraps log/slog with the handler setup shared by all
// weather-sync binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the slog.Logger handed to every component.
type Logger struct {
	*slog.Logger
}

// New returns a Logger writing text records to stderr at the given level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a Logger writing text records to w at the given level.
func NewLogger(level slog.Level, w io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard returns a Logger that drops everything. Useful in tests.
func Discard() *Logger {
	return NewLogger(slog.LevelError+1, io.Discard)
}

// With returns a Logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Err returns the attribute used for errors in every log record.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
