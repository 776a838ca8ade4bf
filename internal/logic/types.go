// Package logic turns raw host switch samples into debounced display mode
// transitions. It has no I/O; time is always passed in.
package logic

import "time"

// State is the debounced level of one host signal.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType names a mode transition.
type EventType string

const (
	EventDisplayOn  EventType = "DISPLAY_ON"
	EventDisplayOff EventType = "DISPLAY_OFF"
	EventAmbientOn  EventType = "AMBIENT_ON"
	EventAmbientOff EventType = "AMBIENT_OFF"
)

// Event is one debounced transition together with both stable levels after it.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Display   State
	Ambient   State
}

// SignalState tracks debounce state for a single signal.
type SignalState struct {
	Stable       State
	Pending      State
	PendingSince time.Time
	Baselined    bool
}

// Input is one sample of both signals.
type Input struct {
	DisplayOn bool
	LowPower  bool
	Time      time.Time
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	DisplayOn  int
	DisplayOff int
	AmbientOn  int
	AmbientOff int
}

// HeartbeatData is reported periodically once the detector is baselined.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
