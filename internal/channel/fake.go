package channel

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PutCall is one recorded FakeSession.PutRecord call.
type PutCall struct {
	Path   string
	Data   DataMap
	Urgent bool
}

// FakeSession is a scripted Session for tests. Script fields may be set
// before use; recorded fields are read after. All methods are safe for
// concurrent use.
type FakeSession struct {
	mu sync.Mutex

	// ConnectHang makes Connect wait out the full timeout and fail.
	ConnectHang bool
	// ConnectError, if set, is returned by Connect.
	ConnectError error
	// Node is returned by LocalNodeID.
	Node NodeID
	// NodeError, if set, is returned by LocalNodeID.
	NodeError error
	// PutError, if set, is returned by PutRecord.
	PutError error
	// PutBlock, if set, makes PutRecord wait for it or for ctx.
	PutBlock chan struct{}
	// Records are returned by GetRecord, keyed by path.
	Records map[string]Record
	// GetError, if set, is returned by GetRecord.
	GetError error
	// SubscribeBlock, if set, makes Subscribe wait for it or for ctx.
	SubscribeBlock chan struct{}
	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error

	Observer     ConnectionObserver
	Puts         []PutCall
	Gets         []Address
	Connects     int
	Disconnects  int
	Listeners    []RecordObserver
	Unsubscribed int

	state State
}

// NewFakeSession creates a FakeSession for the given node.
func NewFakeSession(node NodeID) *FakeSession {
	return &FakeSession{Node: node, Records: make(map[string]Record)}
}

// Connect records the call and reports the scripted outcome to the observer.
func (f *FakeSession) Connect(timeout time.Duration) error {
	f.mu.Lock()
	f.Connects++
	hang, connErr := f.ConnectHang, f.ConnectError
	obs := f.observer()
	f.mu.Unlock()

	if hang {
		time.Sleep(timeout)
		err := fmt.Errorf("%w after %v", ErrConnectionTimeout, timeout)
		obs.OnFailed(err)
		return err
	}
	if connErr != nil {
		obs.OnFailed(connErr)
		return connErr
	}

	f.mu.Lock()
	f.state = Connected
	f.mu.Unlock()
	obs.OnConnected()
	return nil
}

func (f *FakeSession) observer() ConnectionObserver {
	if f.Observer == nil {
		return NopObserver{}
	}
	return f.Observer
}

// Disconnect records the call and drops all listeners.
func (f *FakeSession) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Disconnects++
	f.state = Disconnected
	f.Listeners = nil
}

// State returns the current fake state.
func (f *FakeSession) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LocalNodeID returns Node or NodeError.
func (f *FakeSession) LocalNodeID(ctx context.Context) (NodeID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NodeError != nil {
		return "", f.NodeError
	}
	return f.Node, ctx.Err()
}

// PutRecord records the put and returns the scripted result.
func (f *FakeSession) PutRecord(ctx context.Context, path string, data DataMap, urgent bool) (DeliveryResult, error) {
	f.mu.Lock()
	f.Puts = append(f.Puts, PutCall{Path: path, Data: data, Urgent: urgent})
	block, putErr := f.PutBlock, f.PutError
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return DeliveryResult{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, ctx.Err())
		}
	}
	if putErr != nil {
		return DeliveryResult{}, putErr
	}
	return DeliveryResult{Path: path, Replicas: 1}, nil
}

// GetRecord records the address and returns Records[addr.Path].
func (f *FakeSession) GetRecord(ctx context.Context, addr Address) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets = append(f.Gets, addr)
	if f.GetError != nil {
		return Record{}, false, f.GetError
	}
	rec, ok := f.Records[addr.Path]
	return rec, ok, ctx.Err()
}

// Subscribe adds a listener.
func (f *FakeSession) Subscribe(ctx context.Context, obs RecordObserver) error {
	f.mu.Lock()
	block, subErr := f.SubscribeBlock, f.SubscribeError
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return fmt.Errorf("subscribe: %w", ctx.Err())
		}
	}
	if subErr != nil {
		return subErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Listeners = append(f.Listeners, obs)
	return nil
}

// Unsubscribe removes a listener.
func (f *FakeSession) Unsubscribe(obs RecordObserver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unsubscribed++
	for i, l := range f.Listeners {
		if l == obs {
			f.Listeners = append(f.Listeners[:i], f.Listeners[i+1:]...)
			break
		}
	}
	return nil
}

// Emit delivers events to every current listener on the calling goroutine.
func (f *FakeSession) Emit(events ...ChangeEvent) {
	f.mu.Lock()
	listeners := append([]RecordObserver(nil), f.Listeners...)
	f.mu.Unlock()
	for _, l := range listeners {
		l.OnRecordsChanged(events)
	}
}

// Suspend reports a suspension to the observer.
func (f *FakeSession) Suspend() {
	f.mu.Lock()
	f.state = Disconnected
	obs := f.observer()
	f.mu.Unlock()
	obs.OnSuspended(ErrConnectionSuspended)
}

// FakeDialer hands out FakeSessions. New builds each session; if nil, a
// fresh FakeSession for Node is used.
type FakeDialer struct {
	mu       sync.Mutex
	Node     NodeID
	New      func() *FakeSession
	Sessions []*FakeSession
}

// Dial creates and records a session bound to obs.
func (d *FakeDialer) Dial(obs ConnectionObserver) Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s *FakeSession
	if d.New != nil {
		s = d.New()
	} else {
		s = NewFakeSession(d.Node)
	}
	s.mu.Lock()
	s.Observer = obs
	s.mu.Unlock()
	d.Sessions = append(d.Sessions, s)
	return s
}

// Last returns the most recently dialled session, or nil.
func (d *FakeDialer) Last() *FakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Sessions) == 0 {
		return nil
	}
	return d.Sessions[len(d.Sessions)-1]
}

// Count returns the number of sessions dialled.
func (d *FakeDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Sessions)
}

// PutCount returns the number of PutRecord calls so far.
func (f *FakeSession) PutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Puts)
}

// DisconnectCount returns the number of Disconnect calls so far.
func (f *FakeSession) DisconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Disconnects
}
