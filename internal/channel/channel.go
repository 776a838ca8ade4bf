// Package channel provides the store-and-forward record channel shared by
// the publisher and the display, with an MQTT implementation, an in-memory
// hub and a scripted fake for testing.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Errors reported by sessions. Callers test with errors.Is.
var (
	ErrConnectionTimeout   = errors.New("connection timed out")
	ErrConnectionSuspended = errors.New("connection suspended")
	ErrConnectionFailed    = errors.New("connection failed")
	ErrDeliveryFailed      = errors.New("delivery failed")
	ErrNotConnected        = errors.New("session not connected")
)

// State is the lifecycle state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	}
	return "UNKNOWN"
}

// NodeID identifies one device attached to the channel.
type NodeID string

// Address is a node-scoped record path.
type Address struct {
	Node NodeID
	Path string
}

// DataMap holds the named fields of a record.
type DataMap map[string]any

// GetInt returns an integer field. Floats are accepted only when integral,
// since JSON transports decode every number as float64.
func (m DataMap) GetInt(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		// -math.MinInt is the first float64 past MaxInt.
		if v != math.Trunc(v) || v < math.MinInt || v >= -math.MinInt {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil || n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// GetDouble returns a numeric field as float64.
func (m DataMap) GetDouble(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Record is one stored item: its address, fields and publish metadata.
type Record struct {
	Address   Address
	Data      DataMap
	Timestamp time.Time
	Urgent    bool
}

// ChangeEvent reports that the record at Path was replaced.
type ChangeEvent struct {
	Path   string
	Record Record
}

// DeliveryResult is the acknowledgement of a put.
type DeliveryResult struct {
	Path     string
	Replicas int // replicas that accepted the record
}

// ConnectionObserver receives session lifecycle notifications. Calls may
// arrive on any goroutine.
type ConnectionObserver interface {
	OnConnected()
	OnSuspended(err error)
	OnFailed(err error)
}

// RecordObserver receives change events for a subscribed session. Calls may
// arrive on any goroutine. Implementations must be comparable so they can be
// unsubscribed.
type RecordObserver interface {
	OnRecordsChanged(events []ChangeEvent)
}

// Dialer creates sessions. Each session is owned by the caller that dialled it.
type Dialer interface {
	Dial(obs ConnectionObserver) Session
}

// Session is a connection to the channel.
//
// Connect blocks for at most timeout. The observer passed to Dial is told
// about the outcome of Connect and about later suspensions. Subscribe may
// wait on the channel until ctx is done. Disconnect does not block on the
// channel.
type Session interface {
	Connect(timeout time.Duration) error
	Disconnect()
	State() State
	LocalNodeID(ctx context.Context) (NodeID, error)
	PutRecord(ctx context.Context, path string, data DataMap, urgent bool) (DeliveryResult, error)
	GetRecord(ctx context.Context, addr Address) (Record, bool, error)
	Subscribe(ctx context.Context, obs RecordObserver) error
	Unsubscribe(obs RecordObserver) error
}

// NopObserver ignores connection notifications. Short-lived sessions that
// only use the return value of Connect pass it to Dial.
type NopObserver struct{}

func (NopObserver) OnConnected()      {}
func (NopObserver) OnSuspended(error) {}
func (NopObserver) OnFailed(error)    {}
