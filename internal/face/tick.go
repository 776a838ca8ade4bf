package face

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPeriod is the interactive redraw period.
const DefaultPeriod = time.Second

// NextTickDelay returns the delay that lands the next tick on the next
// period boundary, so drift never accumulates.
func NextTickDelay(now time.Time, period time.Duration) time.Duration {
	if period <= 0 {
		period = DefaultPeriod
	}
	return period - time.Duration(now.UnixNano()%int64(period))
}

// tickTimer is a cancellable single-shot timer whose callback runs on the
// engine loop. The generation counter drops a callback that was already
// queued on the loop when the timer was cancelled or rescheduled.
// All methods must be called on the engine loop.
type tickTimer struct {
	clock clockwork.Clock
	post  func(func()) bool
	gen   uint64
	timer clockwork.Timer
}

func newTickTimer(clock clockwork.Clock, post func(func()) bool) *tickTimer {
	return &tickTimer{clock: clock, post: post}
}

func (t *tickTimer) schedule(d time.Duration, fn func()) {
	t.cancel()
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() {
		t.post(func() {
			if gen == t.gen {
				t.timer = nil
				fn()
			}
		})
	})
}

func (t *tickTimer) cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *tickTimer) pending() bool {
	return t.timer != nil
}
