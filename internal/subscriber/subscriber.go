// Package subscriber keeps the display's copy of the weather record in step
// with the channel while the display is visible.
//
// A Subscriber is driven entirely from the display engine's loop: Activate
// and Deactivate are called on it, and every channel completion is posted
// back onto it before it touches any state.
package subscriber

import (
	"context"
	"time"

	"github.com/sweeney/weather-sync/internal/channel"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/weather"
)

// Defaults for Config.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultFetchTimeout   = 5 * time.Second
)

// State is the subscriber's position in the connect and fetch sequence.
type State int

const (
	Idle State = iota
	Connecting
	FetchingNode
	FetchingRecord
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Connecting:
		return "CONNECTING"
	case FetchingNode:
		return "FETCHING_NODE"
	case FetchingRecord:
		return "FETCHING_RECORD"
	case Listening:
		return "LISTENING"
	}
	return "UNKNOWN"
}

// Poster runs closures on the display loop.
type Poster interface {
	Post(fn func()) bool
}

// Sink receives reconciled snapshots on the display loop.
type Sink interface {
	Apply(s weather.Snapshot)
}

// Config tunes a Subscriber.
type Config struct {
	ConnectTimeout time.Duration
	FetchTimeout   time.Duration
}

// Subscriber is the fetch and listen side of the sync protocol.
type Subscriber struct {
	dialer  channel.Dialer
	loop    Poster
	sink    Sink
	tracker *status.Tracker
	log     *logger.Logger
	cfg     Config

	// Loop-confined.
	active   bool
	epoch    uint64
	state    State
	session  channel.Session
	listener *recordListener
	// applied counts snapshots reconciled from change notifications. A
	// fetch remembers it when issued and is dropped if it has moved.
	applied uint64
}

// New creates an idle Subscriber. tracker may be nil.
func New(dialer channel.Dialer, loop Poster, sink Sink, cfg Config, tracker *status.Tracker, log *logger.Logger) *Subscriber {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Subscriber{
		dialer:  dialer,
		loop:    loop,
		sink:    sink,
		tracker: tracker,
		log:     log.With("component", "subscriber"),
		cfg:     cfg,
	}
}

// State returns the current state.
func (s *Subscriber) State() State { return s.state }

// Active reports whether the subscriber has been activated and not since
// deactivated.
func (s *Subscriber) Active() bool { return s.active }

// Activate opens a session and starts connecting in the background.
// Activating an active subscriber does nothing.
func (s *Subscriber) Activate() {
	if s.active {
		return
	}
	s.active = true
	s.epoch++
	epoch := s.epoch

	obs := &connectionWatcher{sub: s, epoch: epoch}
	sess := s.dialer.Dial(obs)
	obs.session = sess
	s.session = sess
	s.setState(Connecting)
	s.channelState(channel.Connecting)
	s.log.Debug("activating", "epoch", epoch)

	timeout := s.cfg.ConnectTimeout
	go func() {
		// The outcome reaches the loop through the observer.
		_ = sess.Connect(timeout)
	}()
}

// Deactivate unsubscribes and closes the session. Any completion still in
// flight is ignored when it arrives. Deactivating an inactive subscriber
// does nothing.
func (s *Subscriber) Deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.epoch++
	sess, l := s.session, s.listener
	s.session, s.listener = nil, nil
	s.setState(Idle)

	if l != nil {
		if err := sess.Unsubscribe(l); err != nil {
			s.log.Debug("unsubscribe failed", logger.Err(err))
		}
	}
	sess.Disconnect()
	s.channelState(channel.Disconnected)
	s.log.Debug("deactivated")
}

func (s *Subscriber) current(epoch uint64) bool {
	return s.active && epoch == s.epoch
}

func (s *Subscriber) setState(st State) {
	if s.state != st {
		s.log.Debug("state", "from", s.state.String(), "to", st.String())
		s.state = st
	}
}

func (s *Subscriber) channelState(st channel.State) {
	if s.tracker != nil {
		s.tracker.SetChannelState(st.String())
	}
}

func (s *Subscriber) onConnected(epoch uint64, sess channel.Session) {
	if !s.current(epoch) {
		// Connected after being deactivated: close the orphan.
		sess.Disconnect()
		return
	}
	s.channelState(channel.Connected)

	// The broker subscription and node lookup both wait on the channel, so
	// they run off the loop and report back through onNode.
	l := &recordListener{sub: s, epoch: epoch}
	s.listener = l
	s.setState(FetchingNode)
	timeout := s.cfg.FetchTimeout
	go func() {
		subCtx, cancelSub := context.WithTimeout(context.Background(), timeout)
		subErr := sess.Subscribe(subCtx, l)
		cancelSub()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		node, err := sess.LocalNodeID(ctx)
		s.loop.Post(func() { s.onNode(epoch, sess, subErr, node, err) })
	}()
}

func (s *Subscriber) onNode(epoch uint64, sess channel.Session, subErr error, node channel.NodeID, err error) {
	if !s.current(epoch) {
		return
	}
	if subErr != nil {
		s.log.Warn("subscribe failed", logger.Err(subErr))
		s.listener = nil
	}
	if err != nil {
		s.log.Warn("local node lookup failed", logger.Err(err))
		s.setState(Listening)
		return
	}

	s.setState(FetchingRecord)
	addr := channel.Address{Node: node, Path: weather.Path}
	seen := s.applied
	timeout := s.cfg.FetchTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rec, found, err := sess.GetRecord(ctx, addr)
		s.loop.Post(func() { s.onFetched(epoch, seen, rec, found, err) })
	}()
}

func (s *Subscriber) onFetched(epoch, seen uint64, rec channel.Record, found bool, err error) {
	if !s.current(epoch) {
		return
	}
	s.setState(Listening)
	switch {
	case err != nil:
		s.log.Warn("fetch failed", logger.Err(err))
	case !found:
		s.log.Debug("no record yet", "path", weather.Path)
	case s.applied != seen:
		s.log.Debug("fetch superseded by notification, dropped")
	default:
		s.reconcile(rec.Data, "fetch")
	}
}

func (s *Subscriber) onChanged(epoch uint64, events []channel.ChangeEvent) {
	if !s.current(epoch) {
		return
	}
	for _, ev := range events {
		if ev.Path != weather.Path {
			continue
		}
		if s.reconcile(ev.Record.Data, "notification") {
			s.applied++
		}
	}
}

func (s *Subscriber) onSuspended(epoch uint64, err error) {
	if !s.current(epoch) {
		return
	}
	s.log.Warn("connection suspended", logger.Err(err))
	s.setState(Idle)
	s.channelState(channel.Disconnected)
}

func (s *Subscriber) onFailed(epoch uint64, err error) {
	if !s.current(epoch) {
		return
	}
	s.log.Warn("connection failed", logger.Err(err))
	s.setState(Idle)
	s.channelState(channel.Disconnected)
}

// reconcile decodes data and hands it to the sink. A malformed record is
// logged and leaves the display unchanged.
func (s *Subscriber) reconcile(data channel.DataMap, source string) bool {
	snap, err := weather.Decode(data)
	if err != nil {
		s.log.Warn("rejected record", "source", source, logger.Err(err))
		if s.tracker != nil {
			s.tracker.RecordRejected()
		}
		return false
	}
	s.log.Debug("reconciled", "source", source, "weather", snap.String())
	s.sink.Apply(snap)
	return true
}

// connectionWatcher forwards session events for one activation to the loop.
type connectionWatcher struct {
	sub     *Subscriber
	epoch   uint64
	session channel.Session
}

func (w *connectionWatcher) OnConnected() {
	w.sub.loop.Post(func() { w.sub.onConnected(w.epoch, w.session) })
}

func (w *connectionWatcher) OnSuspended(err error) {
	w.sub.loop.Post(func() { w.sub.onSuspended(w.epoch, err) })
}

func (w *connectionWatcher) OnFailed(err error) {
	w.sub.loop.Post(func() { w.sub.onFailed(w.epoch, err) })
}

// recordListener forwards change events for one activation to the loop.
type recordListener struct {
	sub   *Subscriber
	epoch uint64
}

func (l *recordListener) OnRecordsChanged(events []channel.ChangeEvent) {
	l.sub.loop.Post(func() { l.sub.onChanged(l.epoch, events) })
}
