package logic

import "time"

// Detector debounces the display and low-power signals.
type Detector struct {
	debounceDuration time.Duration
	display          SignalState
	ambient          SignalState
	baselined        bool
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a detector. startTime is the origin for heartbeat uptime.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process feeds one sample and returns the transitions it completes. Nothing
// is emitted until both signals have held steady for the debounce period.
func (d *Detector) Process(input Input) []Event {
	displayChanged := d.debounce(&d.display, levelOf(input.DisplayOn), input.Time)
	ambientChanged := d.debounce(&d.ambient, levelOf(input.LowPower), input.Time)

	if !d.baselined {
		d.baselined = d.display.Baselined && d.ambient.Baselined
		return nil
	}

	var events []Event
	// Display before ambient, so a host that wakes into ambient sees
	// visibility first.
	if displayChanged {
		typ := EventDisplayOff
		if d.display.Stable == StateOn {
			typ = EventDisplayOn
		}
		events = append(events, d.event(typ, input.Time))
	}
	if ambientChanged {
		typ := EventAmbientOff
		if d.ambient.Stable == StateOn {
			typ = EventAmbientOn
		}
		events = append(events, d.event(typ, input.Time))
	}
	return events
}

func (d *Detector) event(typ EventType, at time.Time) Event {
	switch typ {
	case EventDisplayOn:
		d.eventCounts.DisplayOn++
	case EventDisplayOff:
		d.eventCounts.DisplayOff++
	case EventAmbientOn:
		d.eventCounts.AmbientOn++
	case EventAmbientOff:
		d.eventCounts.AmbientOff++
	}
	return Event{Timestamp: at, Type: typ, Display: d.display.Stable, Ambient: d.ambient.Stable}
}

// debounce advances one signal and reports whether its stable level changed.
// Establishing the baseline is not a change.
func (d *Detector) debounce(s *SignalState, level State, now time.Time) bool {
	if level == s.Stable && s.Baselined {
		s.Pending = ""
		return false
	}
	if s.Pending != level {
		s.Pending = level
		s.PendingSince = now
		return false
	}
	if now.Sub(s.PendingSince) < d.debounceDuration {
		return false
	}

	s.Stable = level
	s.Pending = ""
	if !s.Baselined {
		s.Baselined = true
		return false
	}
	return true
}

func levelOf(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// IsBaselined reports whether both signals have a stable level.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the stable levels.
func (d *Detector) CurrentState() (display, ambient State) {
	return d.display.Stable, d.ambient.Stable
}

// Counts returns the transitions emitted so far.
func (d *Detector) Counts() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data once per interval after baseline.
// A non-positive interval disables heartbeats.
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || !d.baselined {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}
	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
