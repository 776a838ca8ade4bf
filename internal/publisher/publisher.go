// Package publisher pushes the current weather snapshot onto the channel.
// Each publish opens its own short-lived session and always closes it.
package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sweeney/weather-sync/internal/channel"
	"github.com/sweeney/weather-sync/internal/datasource"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/weather"
)

// Default bounds for the two blocking steps of a publish.
const (
	DefaultConnectTimeout  = 500 * time.Millisecond
	DefaultDeliveryTimeout = 5 * time.Second
)

// Outcome is the result of one publish. No outcome is an error for the caller.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotConnected
	OutcomeNoData
	OutcomeDeliveryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeNotConnected:
		return "NOT_CONNECTED"
	case OutcomeNoData:
		return "NO_DATA"
	case OutcomeDeliveryFailed:
		return "DELIVERY_FAILED"
	}
	return "UNKNOWN"
}

// Config holds the publish parameters.
type Config struct {
	Location        datasource.Location
	ConnectTimeout  time.Duration
	DeliveryTimeout time.Duration
}

// Publisher publishes the snapshot for one location.
type Publisher struct {
	dialer  channel.Dialer
	source  datasource.Source
	tracker *status.Tracker
	log     *logger.Logger
	cfg     Config
	now     func() time.Time

	mu sync.Mutex // serializes Publish
}

// New creates a Publisher. tracker may be nil.
func New(dialer channel.Dialer, source datasource.Source, cfg Config, tracker *status.Tracker, log *logger.Logger) *Publisher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}
	return &Publisher{
		dialer:  dialer,
		source:  source,
		tracker: tracker,
		log:     log.With("component", "publisher"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Publish runs one connect, query, put, disconnect cycle. Concurrent calls
// queue behind the one in progress.
func (p *Publisher) Publish(ctx context.Context) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	outcome := p.publish(ctx)
	if p.tracker != nil {
		p.tracker.RecordPublish(outcome.String(), outcome == OutcomeSuccess, p.now())
	}
	return outcome
}

func (p *Publisher) publish(ctx context.Context) Outcome {
	session := p.dialer.Dial(channel.NopObserver{})
	defer session.Disconnect()

	if err := session.Connect(p.cfg.ConnectTimeout); err != nil {
		p.log.Warn("channel not connected, skipping publish", logger.Err(err))
		return OutcomeNotConnected
	}

	snap, ok, err := p.source.QueryCurrentSnapshot(ctx, p.cfg.Location)
	if err != nil {
		p.log.Warn("data source query failed, skipping publish",
			"location", p.cfg.Location.Key(), logger.Err(err))
		return OutcomeNoData
	}
	if !ok {
		p.log.Info("no weather row, skipping publish",
			"location", p.cfg.Location.Key(), logger.Err(datasource.ErrNoLocalData))
		return OutcomeNoData
	}

	putCtx, cancel := context.WithTimeout(ctx, p.cfg.DeliveryTimeout)
	defer cancel()
	res, err := session.PutRecord(putCtx, weather.Path, weather.Encode(snap), true)
	if err != nil {
		if !errors.Is(err, channel.ErrDeliveryFailed) {
			err = errors.Join(channel.ErrDeliveryFailed, err)
		}
		p.log.Warn("weather delivery failed", "path", weather.Path, logger.Err(err))
		return OutcomeDeliveryFailed
	}

	p.log.Info("weather published", "path", res.Path, "replicas", res.Replicas, "snapshot", snap.String())
	return OutcomeSuccess
}
