package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("new should successfully create a logger", func(t *testing.T) {
		l := New(slog.LevelInfo)
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("logger honours the configured level", func(t *testing.T) {
		tests := []struct {
			name        string
			level       slog.Level
			shouldDebug bool
			shouldInfo  bool
			shouldWarn  bool
			shouldError bool
		}{
			{"DEBUG", slog.LevelDebug, true, true, true, true},
			{"INFO", slog.LevelInfo, false, true, true, true},
			{"WARN", slog.LevelWarn, false, false, true, true},
			{"ERROR", slog.LevelError, false, false, false, true},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				buf := bytes.NewBuffer(nil)
				l := NewLogger(tc.level, buf)
				l.Debug("msg-debug")
				l.Info("msg-info")
				l.Warn("msg-warn")
				l.Error("msg-error")

				check := func(msg string, want bool) {
					got := bytes.Contains(buf.Bytes(), []byte(msg))
					if got != want {
						t.Errorf("%s logged: got %v, want %v", msg, got, want)
					}
				}
				check("msg-debug", tc.shouldDebug)
				check("msg-info", tc.shouldInfo)
				check("msg-warn", tc.shouldWarn)
				check("msg-error", tc.shouldError)
			})
		}
	})
}

func TestErr(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	l := NewLogger(slog.LevelInfo, buf)
	l.Error("publish failed", Err(errors.New("broker down")))

	out := buf.String()
	if !strings.Contains(out, `error="broker down"`) {
		t.Errorf("expected error attribute in output, got %q", out)
	}
}

func TestWith(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	l := NewLogger(slog.LevelInfo, buf).With(slog.String("role", "publisher"))
	l.Info("started")

	if !strings.Contains(buf.String(), "role=publisher") {
		t.Errorf("expected role attribute in output, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nobody hears this")
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not enable error level")
	}
}
