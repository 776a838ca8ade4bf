package weather

import (
	"errors"
	"fmt"

	"github.com/sweeney/weather-sync/internal/channel"
)

// ErrMalformedRecord is returned when a record lacks a key or carries the wrong type.
var ErrMalformedRecord = errors.New("malformed weather record")

// Encode converts a snapshot into the record fields published at Path.
func Encode(s Snapshot) channel.DataMap {
	return channel.DataMap{
		KeyConditionID: s.ConditionID,
		KeyHighTemp:    s.High,
		KeyLowTemp:     s.Low,
	}
}

// Decode converts record fields back into a snapshot. A record missing any
// key is rejected as a whole; partial snapshots are never returned.
func Decode(m channel.DataMap) (Snapshot, error) {
	id, ok := m.GetInt(KeyConditionID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrMalformedRecord, KeyConditionID)
	}
	high, ok := m.GetDouble(KeyHighTemp)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrMalformedRecord, KeyHighTemp)
	}
	low, ok := m.GetDouble(KeyLowTemp)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrMalformedRecord, KeyLowTemp)
	}
	return Snapshot{ConditionID: id, High: high, Low: low}, nil
}
