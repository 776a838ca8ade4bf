// Package datasource provides the local weather rows the publisher reads,
// and the fetchers that keep them current.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/weather-sync/internal/weather"
)

// ErrNoLocalData is returned when no usable row exists for a location.
var ErrNoLocalData = errors.New("no local weather data")

// Location identifies the place a row belongs to.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Key returns the store key for the location.
func (l Location) Key() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// Source answers the publisher's query for the current snapshot. A missing
// row is reported as ok=false, not as an error.
type Source interface {
	QueryCurrentSnapshot(ctx context.Context, loc Location) (weather.Snapshot, bool, error)
}

// Fetcher retrieves a fresh snapshot from an upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context, loc Location) (weather.Snapshot, error)
}
