package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/weather-sync/internal/logger"
)

// DefaultQueueSize is the per-listener change queue capacity of a Hub.
const DefaultQueueSize = 16

// Hub is an in-memory channel. Every node has its own replica; a put is
// copied into all replicas and queued to every subscribed listener.
type Hub struct {
	log       *logger.Logger
	queueSize int
	now       func() time.Time

	mu        sync.Mutex
	replicas  map[NodeID]map[string]Record
	sessions  map[*hubSession]struct{}
	reachable bool
	putErr    error
}

// NewHub creates a reachable hub with no nodes.
func NewHub(log *logger.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		log:       log,
		queueSize: queueSize,
		now:       time.Now,
		replicas:  make(map[NodeID]map[string]Record),
		sessions:  make(map[*hubSession]struct{}),
		reachable: true,
	}
}

// Dialer returns a Dialer whose sessions run as the given node.
func (h *Hub) Dialer(node NodeID) Dialer {
	h.mu.Lock()
	if _, ok := h.replicas[node]; !ok {
		h.replicas[node] = make(map[string]Record)
	}
	h.mu.Unlock()
	return hubDialer{hub: h, node: node}
}

// SetReachable simulates the channel going away or coming back. Going
// unreachable suspends every connected session; connects then time out.
func (h *Hub) SetReachable(reachable bool) {
	h.mu.Lock()
	h.reachable = reachable
	var suspended []*hubSession
	if !reachable {
		for s := range h.sessions {
			suspended = append(suspended, s)
		}
	}
	h.mu.Unlock()

	for _, s := range suspended {
		s.suspend()
	}
}

// SetDeliveryError makes every put fail with err until cleared with nil.
func (h *Hub) SetDeliveryError(err error) {
	h.mu.Lock()
	h.putErr = err
	h.mu.Unlock()
}

// Record returns node's replica of the record at path.
func (h *Hub) Record(node NodeID, path string) (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.replicas[node][path]
	return rec, ok
}

func (h *Hub) put(from NodeID, path string, data DataMap, urgent bool) (DeliveryResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.putErr != nil {
		return DeliveryResult{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, h.putErr)
	}

	copied := make(DataMap, len(data))
	for k, v := range data {
		copied[k] = v
	}
	ts := h.now()
	for node, replica := range h.replicas {
		replica[path] = Record{
			Address:   Address{Node: node, Path: path},
			Data:      copied,
			Timestamp: ts,
			Urgent:    urgent,
		}
	}

	ev := ChangeEvent{
		Path:   path,
		Record: Record{Address: Address{Node: from, Path: path}, Data: copied, Timestamp: ts, Urgent: urgent},
	}
	for s := range h.sessions {
		for _, l := range s.listeners {
			l.buf.push(ev)
			l.signal()
		}
	}

	h.log.Debug("hub: record stored", "path", path, "from", string(from), "replicas", len(h.replicas))
	return DeliveryResult{Path: path, Replicas: len(h.replicas)}, nil
}

type hubDialer struct {
	hub  *Hub
	node NodeID
}

func (d hubDialer) Dial(obs ConnectionObserver) Session {
	if obs == nil {
		obs = NopObserver{}
	}
	return &hubSession{hub: d.hub, node: d.node, obs: obs}
}

// hubListener drains its queue into one observer on its own goroutine.
type hubListener struct {
	obs  RecordObserver
	buf  *ringBuffer
	wake chan struct{}
	done chan struct{}
}

func (l *hubListener) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// hubSession state is guarded by hub.mu.
type hubSession struct {
	hub  *Hub
	node NodeID
	obs  ConnectionObserver

	state     State
	listeners []*hubListener
}

func (s *hubSession) Connect(timeout time.Duration) error {
	h := s.hub
	h.mu.Lock()
	if s.state == Connected {
		h.mu.Unlock()
		return nil
	}
	reachable := h.reachable
	if reachable {
		s.state = Connected
		h.sessions[s] = struct{}{}
	} else {
		s.state = Connecting
	}
	h.mu.Unlock()

	if !reachable {
		time.Sleep(timeout)
		h.mu.Lock()
		s.state = Disconnected
		h.mu.Unlock()
		err := fmt.Errorf("%w after %v", ErrConnectionTimeout, timeout)
		s.obs.OnFailed(err)
		return err
	}
	s.obs.OnConnected()
	return nil
}

func (s *hubSession) suspend() {
	h := s.hub
	h.mu.Lock()
	if s.state != Connected {
		h.mu.Unlock()
		return
	}
	s.state = Disconnected
	delete(h.sessions, s)
	listeners := s.listeners
	s.listeners = nil
	h.mu.Unlock()

	for _, l := range listeners {
		close(l.done)
	}
	s.obs.OnSuspended(ErrConnectionSuspended)
}

func (s *hubSession) Disconnect() {
	h := s.hub
	h.mu.Lock()
	delete(h.sessions, s)
	listeners := s.listeners
	s.listeners = nil
	s.state = Disconnected
	h.mu.Unlock()

	for _, l := range listeners {
		close(l.done)
	}
}

func (s *hubSession) State() State {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.state
}

func (s *hubSession) LocalNodeID(ctx context.Context) (NodeID, error) {
	if s.State() != Connected {
		return "", ErrNotConnected
	}
	return s.node, ctx.Err()
}

func (s *hubSession) PutRecord(ctx context.Context, path string, data DataMap, urgent bool) (DeliveryResult, error) {
	if s.State() != Connected {
		return DeliveryResult{}, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return DeliveryResult{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return s.hub.put(s.node, path, data, urgent)
}

func (s *hubSession) GetRecord(ctx context.Context, addr Address) (Record, bool, error) {
	if s.State() != Connected {
		return Record{}, false, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	rec, ok := s.hub.Record(addr.Node, addr.Path)
	return rec, ok, nil
}

func (s *hubSession) Subscribe(ctx context.Context, obs RecordObserver) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.state != Connected {
		return ErrNotConnected
	}
	for _, l := range s.listeners {
		if l.obs == obs {
			return nil
		}
	}
	l := &hubListener{
		obs:  obs,
		buf:  newRingBuffer(h.queueSize, h.log),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	s.listeners = append(s.listeners, l)
	go h.deliver(l)
	return nil
}

func (s *hubSession) Unsubscribe(obs RecordObserver) error {
	h := s.hub
	h.mu.Lock()
	var removed *hubListener
	for i, l := range s.listeners {
		if l.obs == obs {
			removed = l
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	if removed != nil {
		close(removed.done)
	}
	return nil
}

func (h *Hub) deliver(l *hubListener) {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		h.mu.Lock()
		events := l.buf.drainAll()
		h.mu.Unlock()
		if len(events) > 0 {
			l.obs.OnRecordsChanged(events)
		}
	}
}
