package channel

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/sweeney/weather-sync/internal/logger"
)

func ev(path string, n int) ChangeEvent {
	return ChangeEvent{Path: path, Record: Record{Data: DataMap{"n": n}}}
}

func evN(t *testing.T, e ChangeEvent) int {
	t.Helper()
	n, ok := e.Record.Data.GetInt("n")
	if !ok {
		t.Fatalf("event %v has no n", e)
	}
	return n
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, nil)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10, nil)
	for i := 0; i < 5; i++ {
		rb.push(ev("/weather", i))
	}

	got := rb.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if n := evN(t, got[i]); n != i {
			t.Errorf("item %d: got %d", i, n)
		}
	}

	if got2 := rb.drainAll(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	capacity := 5
	rb := newRingBuffer(capacity, nil)

	// 0..7 pushed, the most recent 5 (3..7) remain
	for i := 0; i < capacity+3; i++ {
		rb.push(ev("/weather", i))
	}

	got := rb.drainAll()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		if n := evN(t, got[i]); n != i+3 {
			t.Errorf("item %d: got %d, want %d", i, n, i+3)
		}
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5, nil)

	for i := 0; i < 3; i++ {
		rb.push(ev("/a", i))
	}
	if got := rb.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		rb.push(ev("/b", i))
	}
	got := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, e := range got {
		if n := evN(t, e); n != 10+i {
			t.Errorf("cycle 2 item %d: got %d, want %d", i, n, 10+i)
		}
		if e.Path != "/b" {
			t.Errorf("cycle 2 item %d: path %q", i, e.Path)
		}
	}
}

func TestRingBufferLen(t *testing.T) {
	rb := newRingBuffer(10, nil)
	if rb.len() != 0 {
		t.Errorf("expected len 0, got %d", rb.len())
	}

	rb.push(ev("/weather", 1))
	rb.push(ev("/weather", 2))
	if rb.len() != 2 {
		t.Errorf("expected len 2, got %d", rb.len())
	}

	rb.drainAll()
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0, nil)
	rb.push(ev("/weather", 1))
	rb.push(ev("/weather", 2))
	got := rb.drainAll()
	if len(got) != 1 || evN(t, got[0]) != 2 {
		t.Errorf("got %v, want only the newest event", got)
	}
}

func TestRingBufferOverflowLogsOncePerDrain(t *testing.T) {
	var out bytes.Buffer
	rb := newRingBuffer(2, logger.NewLogger(slog.LevelWarn, &out))

	for i := 0; i < 5; i++ {
		rb.push(ev("/weather", i))
	}
	if got := strings.Count(out.String(), "listener queue full"); got != 1 {
		t.Errorf("warnings before drain: got %d, want 1", got)
	}

	rb.drainAll()
	for i := 0; i < 3; i++ {
		rb.push(ev("/weather", i))
	}
	if got := strings.Count(out.String(), "listener queue full"); got != 2 {
		t.Errorf("warnings after drain: got %d, want 2", got)
	}
	if !strings.Contains(out.String(), "capacity=2") {
		t.Errorf("warning lacks capacity: %q", out.String())
	}
}

func TestRingBufferOverflowRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	rb := newRingBuffer(1, logger.NewLogger(slog.LevelError, &out))
	rb.push(ev("/weather", 1))
	rb.push(ev("/weather", 2))
	if out.Len() != 0 {
		t.Errorf("warning logged above configured level: %q", out.String())
	}
}
