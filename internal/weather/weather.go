// Package weather defines the single synchronized record and its wire codec.
// It holds no transport or display logic.
package weather

import (
	"fmt"
	"math"
)

// Path is the fixed channel path of the weather record.
const Path = "/weather"

// Record keys. They are part of the wire format shared with older peers.
const (
	KeyConditionID = "weather_id"
	KeyLowTemp     = "low_temp"
	KeyHighTemp    = "high_temp"
)

// ClearSky is the condition id shown before the first sync.
const ClearSky = 800

// Snapshot is the current weather: a condition class and today's extremes.
// All three fields are always set together.
type Snapshot struct {
	ConditionID int
	High        float64
	Low         float64
}

// Default is the sentinel displayed until a snapshot has been received.
var Default = Snapshot{ConditionID: ClearSky}

// String implements fmt.Stringer.
func (s Snapshot) String() string {
	return fmt.Sprintf("condition=%d high=%s low=%s", s.ConditionID, FormatTemp(s.High), FormatTemp(s.Low))
}

// FormatTemp renders a temperature rounded to whole degrees with a degree sign.
func FormatTemp(v float64) string {
	// %.0f rounds half to even; the display wants half away from zero.
	return fmt.Sprintf("%.0f°", math.Round(v))
}
