package channel

import (
	"log/slog"

	"github.com/sweeney/weather-sync/internal/logger"
)

// ringBuffer is a fixed-capacity FIFO of change events queued for one
// listener. Not safe for concurrent use; the hub holds its lock.
type ringBuffer struct {
	buf      []ChangeEvent
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any event was dropped since last drain
	log      *logger.Logger
}

func newRingBuffer(capacity int, log *logger.Logger) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ringBuffer{
		buf:      make([]ChangeEvent, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (r *ringBuffer) push(ev ChangeEvent) {
	if r.count == r.capacity {
		if !r.overflow {
			r.log.Warn("channel: listener queue full, dropping oldest", slog.Int("capacity", r.capacity))
			r.overflow = true
		}
		r.buf[r.head] = ev
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = ev
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() []ChangeEvent {
	if r.count == 0 {
		return nil
	}

	result := make([]ChangeEvent, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
