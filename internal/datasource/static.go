package datasource

import (
	"context"

	"github.com/sweeney/weather-sync/internal/weather"
)

// Static always returns the same snapshot, for any location.
type Static struct {
	Snapshot weather.Snapshot
}

// QueryCurrentSnapshot implements Source.
func (s Static) QueryCurrentSnapshot(ctx context.Context, _ Location) (weather.Snapshot, bool, error) {
	return s.Snapshot, true, ctx.Err()
}

// Fetch implements Fetcher.
func (s Static) Fetch(ctx context.Context, _ Location) (weather.Snapshot, error) {
	return s.Snapshot, ctx.Err()
}
