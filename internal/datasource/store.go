package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/weather-sync/internal/weather"
)

type row struct {
	snapshot weather.Snapshot
	storedAt time.Time
}

// Store keeps the latest snapshot per location. Rows older than maxAge are
// treated as absent; no history is kept.
type Store struct {
	mu     sync.RWMutex
	rows   map[string]row
	maxAge time.Duration
	now    func() time.Time
}

// NewStore creates an empty store. A maxAge <= 0 keeps rows forever.
func NewStore(maxAge time.Duration) *Store {
	return &Store{
		rows:   make(map[string]row),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Put replaces the row for loc.
func (s *Store) Put(loc Location, snap weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[loc.Key()] = row{snapshot: snap, storedAt: s.now()}
}

// Latest returns the row for loc and when it was stored.
func (s *Store) Latest(loc Location) (weather.Snapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[loc.Key()]
	if !ok {
		return weather.Snapshot{}, time.Time{}, false
	}
	if s.maxAge > 0 && s.now().Sub(r.storedAt) > s.maxAge {
		return weather.Snapshot{}, time.Time{}, false
	}
	return r.snapshot, r.storedAt, true
}

// QueryCurrentSnapshot implements Source.
func (s *Store) QueryCurrentSnapshot(ctx context.Context, loc Location) (weather.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return weather.Snapshot{}, false, err
	}
	snap, _, ok := s.Latest(loc)
	return snap, ok, nil
}
