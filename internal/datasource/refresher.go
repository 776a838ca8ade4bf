package datasource

import (
	"context"
	"fmt"

	"github.com/sweeney/weather-sync/internal/logger"
)

// Refresher copies fresh snapshots from a Fetcher into a Store. A failed
// fetch leaves the previous row in place.
type Refresher struct {
	fetcher Fetcher
	store   *Store
	loc     Location
	log     *logger.Logger
}

// NewRefresher creates a refresher for one location.
func NewRefresher(fetcher Fetcher, store *Store, loc Location, log *logger.Logger) *Refresher {
	return &Refresher{fetcher: fetcher, store: store, loc: loc, log: log}
}

// Refresh fetches once and stores the result.
func (r *Refresher) Refresh(ctx context.Context) error {
	snap, err := r.fetcher.Fetch(ctx, r.loc)
	if err != nil {
		r.log.Warn("weather refresh failed, keeping previous row",
			"location", r.loc.Key(), logger.Err(err))
		return fmt.Errorf("refresh %s: %w", r.loc.Key(), err)
	}
	r.store.Put(r.loc, snap)
	r.log.Debug("weather refreshed", "location", r.loc.Key(), "snapshot", snap.String())
	return nil
}
