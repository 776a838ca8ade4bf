package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/oklog/ulid/v2"

	"github.com/sweeney/weather-sync/internal/logger"
)

// DefaultTopicPrefix is the topic under which records are retained.
const DefaultTopicPrefix = "sunshine"

// disconnectQuiesce is how long, in milliseconds, paho may spend finishing
// in-flight work when a session closes.
const disconnectQuiesce = 250

// MQTTDialer opens sessions against an MQTT broker. Records are retained
// messages on <Prefix><path>; the broker's retained store is the replica.
type MQTTDialer struct {
	Broker         string
	Prefix         string
	ClientIDPrefix string
	Node           NodeID
	AutoReconnect  bool
	// RetainedWait bounds how long GetRecord waits for a retained message
	// before reporting the record as absent.
	RetainedWait time.Duration
	Log          *logger.Logger

	// newClient builds the paho client for each Connect. Nil uses
	// paho.NewClient.
	newClient func(*paho.ClientOptions) paho.Client
}

// NewMQTTDialer returns a dialer with defaults applied. An empty node id is
// replaced with a fresh ULID.
func NewMQTTDialer(broker, prefix string, node NodeID, log *logger.Logger) *MQTTDialer {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if log == nil {
		log = logger.Discard()
	}
	if node == "" {
		node = NodeID(ulid.Make().String())
	}
	return &MQTTDialer{
		Broker:         broker,
		Prefix:         strings.TrimSuffix(prefix, "/"),
		ClientIDPrefix: "weather-sync",
		Node:           node,
		RetainedWait:   250 * time.Millisecond,
		Log:            log,
	}
}

// Dial creates an unconnected session.
func (d *MQTTDialer) Dial(obs ConnectionObserver) Session {
	if obs == nil {
		obs = NopObserver{}
	}
	return &mqttSession{
		d:       d,
		obs:     obs,
		cache:   make(map[string]Record),
		arrived: make(chan struct{}),
	}
}

func (d *MQTTDialer) topic(path string) string {
	return d.Prefix + path
}

type mqttSession struct {
	d    *MQTTDialer
	obs  ConnectionObserver
	lost atomic.Bool

	mu         sync.Mutex
	client     paho.Client
	state      State
	subscribed bool
	cache      map[string]Record
	arrived    chan struct{} // closed and replaced whenever the cache changes
	listeners  []RecordObserver
}

func (s *mqttSession) Connect(timeout time.Duration) error {
	s.mu.Lock()
	if s.state == Connected {
		s.mu.Unlock()
		return nil
	}
	opts := paho.NewClientOptions().
		AddBroker(s.d.Broker).
		SetClientID(s.d.ClientIDPrefix + "-" + ulid.Make().String()).
		SetAutoReconnect(s.d.AutoReconnect).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(s.onConnectionLost).
		SetOnConnectHandler(s.onConnect)
	newClient := s.d.newClient
	if newClient == nil {
		newClient = paho.NewClient
	}
	client := newClient(opts)
	s.client = client
	s.state = Connecting
	s.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		s.setState(Disconnected)
		client.Disconnect(0)
		err := fmt.Errorf("%w after %v", ErrConnectionTimeout, timeout)
		s.obs.OnFailed(err)
		return err
	}
	if err := token.Error(); err != nil {
		s.setState(Disconnected)
		err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		s.obs.OnFailed(err)
		return err
	}

	s.mu.Lock()
	if s.client != client {
		// Disconnect was called while the connect was in flight.
		s.mu.Unlock()
		client.Disconnect(0)
		err := fmt.Errorf("%w: disconnected while connecting", ErrConnectionFailed)
		s.obs.OnFailed(err)
		return err
	}
	s.state = Connected
	s.mu.Unlock()
	s.d.Log.Debug("mqtt: connected", "broker", s.d.Broker, "node", string(s.d.Node))
	s.obs.OnConnected()
	return nil
}

func (s *mqttSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *mqttSession) onConnectionLost(_ paho.Client, err error) {
	s.mu.Lock()
	s.state = Disconnected
	s.subscribed = false
	s.mu.Unlock()
	s.lost.Store(true)
	s.d.Log.Warn("mqtt: connection lost", logger.Err(err))
	s.obs.OnSuspended(fmt.Errorf("%w: %v", ErrConnectionSuspended, err))
}

// onConnect only reports reconnects; the first connect is reported by Connect.
func (s *mqttSession) onConnect(_ paho.Client) {
	if !s.lost.CompareAndSwap(true, false) {
		return
	}
	s.setState(Connected)
	s.obs.OnConnected()
}

func (s *mqttSession) Disconnect() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.state = Disconnected
	s.subscribed = false
	s.listeners = nil
	s.mu.Unlock()

	// The broker goodbye waits out the quiesce period; callers do not.
	if client != nil && client.IsConnected() {
		go client.Disconnect(disconnectQuiesce)
	}
}

func (s *mqttSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *mqttSession) connected() (paho.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *mqttSession) LocalNodeID(ctx context.Context) (NodeID, error) {
	if _, err := s.connected(); err != nil {
		return "", err
	}
	return s.d.Node, ctx.Err()
}

func (s *mqttSession) PutRecord(ctx context.Context, path string, data DataMap, urgent bool) (DeliveryResult, error) {
	client, err := s.connected()
	if err != nil {
		return DeliveryResult{}, err
	}

	payload, err := FormatEnvelope(Record{
		Address:   Address{Node: s.d.Node, Path: path},
		Data:      data,
		Timestamp: time.Now(),
		Urgent:    urgent,
	})
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("%w: format envelope: %v", ErrDeliveryFailed, err)
	}

	// Urgent records ask the broker to acknowledge (QoS 1).
	var qos byte
	if urgent {
		qos = 1
	}
	token := client.Publish(s.d.topic(path), qos, true, payload)
	if err := waitToken(ctx, token); err != nil {
		return DeliveryResult{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return DeliveryResult{Path: path, Replicas: 1}, nil
}

// GetRecord returns the retained record for a path. Only the local node's
// replica is reachable over MQTT; other nodes report not found.
func (s *mqttSession) GetRecord(ctx context.Context, addr Address) (Record, bool, error) {
	if addr.Node != s.d.Node {
		return Record{}, false, nil
	}
	if err := s.ensureSubscribed(ctx); err != nil {
		return Record{}, false, err
	}

	wait := time.NewTimer(s.d.RetainedWait)
	defer wait.Stop()
	for {
		s.mu.Lock()
		rec, ok := s.cache[addr.Path]
		arrived := s.arrived
		s.mu.Unlock()
		if ok {
			return rec, true, nil
		}
		select {
		case <-arrived:
		case <-wait.C:
			return Record{}, false, nil
		case <-ctx.Done():
			return Record{}, false, ctx.Err()
		}
	}
}

func (s *mqttSession) Subscribe(ctx context.Context, obs RecordObserver) error {
	if err := s.ensureSubscribed(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		if l == obs {
			return nil
		}
	}
	s.listeners = append(s.listeners, obs)
	return nil
}

func (s *mqttSession) Unsubscribe(obs RecordObserver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l == obs {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return nil
		}
	}
	return nil
}

// ensureSubscribed installs the single broker subscription that feeds both
// the retained-record cache and the listeners.
func (s *mqttSession) ensureSubscribed(ctx context.Context) error {
	client, err := s.connected()
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return nil
	}
	s.subscribed = true
	s.mu.Unlock()

	token := client.Subscribe(s.d.Prefix+"/#", 1, s.onMessage)
	if err := waitToken(ctx, token); err != nil {
		s.mu.Lock()
		s.subscribed = false
		s.mu.Unlock()
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *mqttSession) onMessage(_ paho.Client, msg paho.Message) {
	rec, err := ParseEnvelope(msg.Payload())
	if err != nil {
		s.d.Log.Warn("mqtt: dropping message", slog.String("topic", msg.Topic()), logger.Err(err))
		return
	}

	s.mu.Lock()
	s.cache[rec.Address.Path] = rec
	close(s.arrived)
	s.arrived = make(chan struct{})
	var listeners []RecordObserver
	// Retained messages replay stored state on subscribe; only live
	// publishes are changes.
	if !msg.Retained() {
		listeners = append(listeners, s.listeners...)
	}
	s.mu.Unlock()

	ev := []ChangeEvent{{Path: rec.Address.Path, Record: rec}}
	for _, l := range listeners {
		l.OnRecordsChanged(ev)
	}
}

func waitToken(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
