package face

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestNextTickDelay(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)
	tests := []struct {
		name   string
		now    time.Time
		period time.Duration
		want   time.Duration
	}{
		{"mid second", base.Add(734 * time.Millisecond), time.Second, 266 * time.Millisecond},
		{"on boundary", base, time.Second, time.Second},
		{"just before boundary", base.Add(999 * time.Millisecond), time.Second, time.Millisecond},
		{"minute period", base.Add(30 * time.Second), time.Minute, 29 * time.Second},
		{"zero period uses default", base.Add(500 * time.Millisecond), 0, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextTickDelay(tt.now, tt.period); got != tt.want {
				t.Errorf("NextTickDelay: got %v, want %v", got, tt.want)
			}
		})
	}
}

// queuePost collects posted closures so the test decides when they run.
type queuePost chan func()

func (q queuePost) post(fn func()) bool {
	q <- fn
	return true
}

func (q queuePost) next(t *testing.T) func() {
	t.Helper()
	select {
	case fn := <-q:
		return fn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posted callback")
		return nil
	}
}

func TestTickTimerFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := make(queuePost, 4)
	timer := newTickTimer(clock, q.post)

	fired := 0
	timer.schedule(time.Second, func() { fired++ })
	if !timer.pending() {
		t.Fatal("expected timer pending after schedule")
	}

	clock.Advance(time.Second)
	q.next(t)()

	if fired != 1 {
		t.Errorf("fired: got %d, want 1", fired)
	}
	if timer.pending() {
		t.Error("expected timer not pending after firing")
	}
}

func TestTickTimerDropsStaleCallback(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := make(queuePost, 4)
	timer := newTickTimer(clock, q.post)

	fired := 0
	timer.schedule(time.Second, func() { fired++ })
	clock.Advance(time.Second)
	stale := q.next(t)

	// Cancelled after the callback was queued but before it ran.
	timer.cancel()
	stale()

	if fired != 0 {
		t.Errorf("fired: got %d, want 0", fired)
	}
}

func TestTickTimerRescheduleDropsOlder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := make(queuePost, 4)
	timer := newTickTimer(clock, q.post)

	var got []string
	timer.schedule(time.Second, func() { got = append(got, "first") })
	clock.Advance(time.Second)
	stale := q.next(t)

	timer.schedule(time.Second, func() { got = append(got, "second") })
	stale()
	clock.Advance(time.Second)
	q.next(t)()

	if len(got) != 1 || got[0] != "second" {
		t.Errorf("fired: got %v, want [second]", got)
	}
}

func TestTickTimerCancelBeforeFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := make(queuePost, 4)
	timer := newTickTimer(clock, q.post)

	timer.schedule(time.Second, func() { t.Error("cancelled timer fired") })
	timer.cancel()
	clock.Advance(2 * time.Second)

	select {
	case fn := <-q:
		fn()
		t.Error("cancelled timer posted a callback")
	case <-time.After(50 * time.Millisecond):
	}
}
