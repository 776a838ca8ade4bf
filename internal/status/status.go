// Package status provides a thread-safe sync status tracker.
// It is written by the publisher, subscriber and face loops and read by
// HTTP handlers.
package status

import (
	"maps"
	"sync"
	"time"

	"github.com/sweeney/weather-sync/internal/logic"
	"github.com/sweeney/weather-sync/internal/weather"
)

// Config contains process configuration for display.
type Config struct {
	Role         string
	Node         string
	Broker       string
	TopicPrefix  string
	HTTPPort     string
	SyncInterval time.Duration
	PollMs       int64
	DebounceMs   int64
}

// PublishStats summarises publish attempts.
type PublishStats struct {
	Attempts    int
	Outcomes    map[string]int
	LastOutcome string
	LastAttempt time.Time
	LastSuccess time.Time
}

// DisplayInfo is what the face currently shows.
type DisplayInfo struct {
	Mode        string
	Weather     weather.Snapshot
	HaveWeather bool
	LastApplied time.Time
	Applied     int
	Rejected    int
}

// SignalInfo mirrors the host switch detector.
type SignalInfo struct {
	Display   logic.State
	Ambient   logic.State
	Baselined bool
	Counts    logic.EventCounts
}

// Snapshot is a point-in-time view of process state. It is a value and
// safe to use after the lock is released.
type Snapshot struct {
	StartTime    time.Time
	Now          time.Time
	ChannelState string
	Publish      PublishStats
	Display      DisplayInfo
	Signals      SignalInfo
	Config       Config
}

// Uptime returns the duration since the process started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable process state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:    startTime,
			ChannelState: "DISCONNECTED",
			Publish:      PublishStats{Outcomes: make(map[string]int)},
			Display:      DisplayInfo{Weather: weather.Default},
			Config:       cfg,
		},
	}
}

// RecordPublish counts one publish attempt and its outcome.
func (t *Tracker) RecordPublish(outcome string, success bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &t.snap.Publish
	p.Attempts++
	p.Outcomes[outcome]++
	p.LastOutcome = outcome
	p.LastAttempt = at
	if success {
		p.LastSuccess = at
	}
}

// SetChannelState records the state of the long-lived session, if any.
func (t *Tracker) SetChannelState(state string) {
	t.mu.Lock()
	t.snap.ChannelState = state
	t.mu.Unlock()
}

// RecordApplied records a snapshot reconciled into the display.
func (t *Tracker) RecordApplied(s weather.Snapshot, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := &t.snap.Display
	d.Weather = s
	d.HaveWeather = true
	d.LastApplied = at
	d.Applied++
}

// RecordRejected counts a record that could not be applied.
func (t *Tracker) RecordRejected() {
	t.mu.Lock()
	t.snap.Display.Rejected++
	t.mu.Unlock()
}

// SetMode records the face mode.
func (t *Tracker) SetMode(mode string) {
	t.mu.Lock()
	t.snap.Display.Mode = mode
	t.mu.Unlock()
}

// UpdateSignals records the host switch detector state.
// Called from the face run loop on every poll.
func (t *Tracker) UpdateSignals(display, ambient logic.State, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Signals = SignalInfo{Display: display, Ambient: ambient, Baselined: baselined, Counts: counts}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the state.
// Now is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Publish.Outcomes = maps.Clone(t.snap.Publish.Outcomes)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
