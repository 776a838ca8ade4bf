package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Role          string       `json:"role"`
	Node          string       `json:"node,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Channel       ChannelJSON  `json:"channel"`
	Publish       *PublishJSON `json:"publish,omitempty"`
	Display       *DisplayJSON `json:"display,omitempty"`
	Signals       *SignalsJSON `json:"signals,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ChannelJSON reports the channel connection.
type ChannelJSON struct {
	State  string `json:"state"`
	Broker string `json:"broker"`
	Prefix string `json:"prefix,omitempty"`
}

// PublishJSON reports publish attempts.
type PublishJSON struct {
	Attempts    int            `json:"attempts"`
	Outcomes    map[string]int `json:"outcomes"`
	LastOutcome string         `json:"last_outcome,omitempty"`
	LastAttempt string         `json:"last_attempt,omitempty"`
	LastSuccess string         `json:"last_success,omitempty"`
}

// WeatherJSON uses the record keys.
type WeatherJSON struct {
	WeatherID int     `json:"weather_id"`
	HighTemp  float64 `json:"high_temp"`
	LowTemp   float64 `json:"low_temp"`
}

// DisplayJSON reports what the face shows.
type DisplayJSON struct {
	Mode        string      `json:"mode"`
	Synced      bool        `json:"synced"`
	Weather     WeatherJSON `json:"weather"`
	LastApplied string      `json:"last_applied,omitempty"`
	Applied     int         `json:"applied"`
	Rejected    int         `json:"rejected"`
}

// SignalsJSON reports the host switches.
type SignalsJSON struct {
	Display string     `json:"display"`
	Ambient string     `json:"ambient"`
	Ready   bool       `json:"ready"`
	Counts  CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	DisplayOn  int `json:"display_on"`
	DisplayOff int `json:"display_off"`
	AmbientOn  int `json:"ambient_on"`
	AmbientOff int `json:"ambient_off"`
}

// ConfigJSON is the JSON representation of process config.
type ConfigJSON struct {
	Broker              string `json:"broker"`
	TopicPrefix         string `json:"topic_prefix"`
	HTTPPort            string `json:"http_port"`
	SyncIntervalSeconds int64  `json:"sync_interval_seconds,omitempty"`
	PollMs              int64  `json:"poll_ms,omitempty"`
	DebounceMs          int64  `json:"debounce_ms,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Role:          snap.Config.Role,
		Node:          snap.Config.Node,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Channel: ChannelJSON{
			State:  orUnknown(snap.ChannelState),
			Broker: snap.Config.Broker,
			Prefix: snap.Config.TopicPrefix,
		},
		Config: ConfigJSON{
			Broker:              snap.Config.Broker,
			TopicPrefix:         snap.Config.TopicPrefix,
			HTTPPort:            snap.Config.HTTPPort,
			SyncIntervalSeconds: int64(snap.Config.SyncInterval.Seconds()),
			PollMs:              snap.Config.PollMs,
			DebounceMs:          snap.Config.DebounceMs,
		},
	}

	if snap.Publish.Attempts > 0 || snap.Config.Role != "face" {
		outcomes := snap.Publish.Outcomes
		if outcomes == nil {
			outcomes = map[string]int{}
		}
		inner.Publish = &PublishJSON{
			Attempts:    snap.Publish.Attempts,
			Outcomes:    outcomes,
			LastOutcome: snap.Publish.LastOutcome,
			LastAttempt: formatTime(snap.Publish.LastAttempt),
			LastSuccess: formatTime(snap.Publish.LastSuccess),
		}
	}

	if snap.Config.Role != "publisher" {
		w := snap.Display.Weather
		inner.Display = &DisplayJSON{
			Mode:        orUnknown(snap.Display.Mode),
			Synced:      snap.Display.HaveWeather,
			Weather:     WeatherJSON{WeatherID: w.ConditionID, HighTemp: w.High, LowTemp: w.Low},
			LastApplied: formatTime(snap.Display.LastApplied),
			Applied:     snap.Display.Applied,
			Rejected:    snap.Display.Rejected,
		}
		inner.Signals = &SignalsJSON{
			Display: orUnknown(string(snap.Signals.Display)),
			Ambient: orUnknown(string(snap.Signals.Ambient)),
			Ready:   snap.Signals.Baselined,
			Counts: CountsJSON{
				DisplayOn:  snap.Signals.Counts.DisplayOn,
				DisplayOff: snap.Signals.Counts.DisplayOff,
				AmbientOn:  snap.Signals.Counts.AmbientOn,
				AmbientOff: snap.Signals.Counts.AmbientOff,
			},
		}
	}
	return inner
}

// Build returns the JSON document for snap.
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatJSON returns the indented JSON status.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}
