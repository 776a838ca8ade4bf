// Command weather-sim runs the publisher and the face in one process over
// the in-memory channel hub. The weather cycles through a fixed set of
// samples and the host alternates between interactive and ambient.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/weather-sync/internal/channel"
	"github.com/sweeney/weather-sync/internal/config"
	"github.com/sweeney/weather-sync/internal/datasource"
	"github.com/sweeney/weather-sync/internal/face"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/publisher"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/subscriber"
	"github.com/sweeney/weather-sync/internal/web"
	"github.com/sweeney/weather-sync/internal/weather"
)

const (
	phoneNode channel.NodeID = "phone"
	watchNode channel.NodeID = "watch"
)

// samples is the weather the simulator cycles through.
var samples = []weather.Snapshot{
	{ConditionID: 800, High: 21, Low: 11},
	{ConditionID: 802, High: 18.5, Low: 9},
	{ConditionID: 500, High: 14, Low: 7.5},
	{ConditionID: 211, High: 16, Low: 10},
	{ConditionID: 601, High: 1, Low: -4},
	{ConditionID: 741, High: 8, Low: 3},
}

// sampleFetcher returns the next sample on every fetch.
type sampleFetcher struct {
	mu      sync.Mutex
	next    int
	samples []weather.Snapshot
}

func (f *sampleFetcher) Fetch(ctx context.Context, _ datasource.Location) (weather.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return weather.Snapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.samples[f.next%len(f.samples)]
	f.next++
	return s, nil
}

type options struct {
	cycle        time.Duration
	ambientEvery time.Duration
	dropEvery    time.Duration
}

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	cycle := flag.Duration("cycle", 20*time.Second, "interval between weather samples")
	ambientEvery := flag.Duration("ambient-every", 45*time.Second, "toggle ambient mode at this interval (0 disables)")
	dropEvery := flag.Duration("drop-every", 0, "toggle channel reachability at this interval (0 disables)")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(conf.LogLevel.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{cycle: *cycle, ambientEvery: *ambientEvery, dropEvery: *dropEvery}
	if err := run(ctx, conf, opts, os.Stdout, log); err != nil {
		log.Error("fatal", logger.Err(err))
		os.Exit(1)
	}
}

// sim is one publisher and one face sharing a hub.
type sim struct {
	hub        *channel.Hub
	scheduler  *publisher.Scheduler
	engine     *face.Engine
	subscriber *subscriber.Subscriber
	tracker    *status.Tracker
	live       *web.LiveSurface
}

func newSim(ctx context.Context, conf *config.Config, opts options, out io.Writer, log *logger.Logger) (*sim, error) {
	hub := channel.NewHub(log.With("node", "hub"), 0)
	phone := hub.Dialer(phoneNode)
	watch := hub.Dialer(watchNode)

	loc := datasource.Location{Name: conf.Location.Name, Latitude: conf.Location.Latitude, Longitude: conf.Location.Longitude}
	store := datasource.NewStore(conf.Sync.MaxAge)
	refresher := datasource.NewRefresher(&sampleFetcher{samples: samples}, store, loc, log)
	pub := publisher.New(phone, store, publisher.Config{
		Location:        loc,
		ConnectTimeout:  conf.Channel.ConnectTimeout,
		DeliveryTimeout: conf.Channel.DeliveryTimeout,
	}, nil, log)
	scheduler, err := publisher.NewScheduler(ctx, opts.cycle, pub, refresher, log)
	if err != nil {
		return nil, err
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Role:         "sim",
		Node:         string(watchNode),
		Broker:       "in-memory",
		HTTPPort:     conf.HTTP.Port,
		SyncInterval: opts.cycle,
	})
	live := web.NewLiveSurface(log)
	surfaces := []face.Surface{live}
	if out != nil {
		surfaces = append(surfaces, face.NewTextSurface(out, conf.Face.TextCols, conf.Face.TextRows))
	}
	var coords *face.Coordinates
	if conf.Location.Latitude != 0 || conf.Location.Longitude != 0 {
		coords = &face.Coordinates{Latitude: conf.Location.Latitude, Longitude: conf.Location.Longitude}
	}
	engine := face.New(face.Options{
		Period:      conf.Face.Period,
		Use24Hour:   !conf.Face.Use12Hour,
		Zone:        conf.Zone,
		Coordinates: coords,
		Surfaces:    surfaces,
		Tracker:     tracker,
	}, log)
	sub := subscriber.New(watch, engine, engine, subscriber.Config{
		ConnectTimeout: conf.Channel.SubscriberConnectTimeout,
		FetchTimeout:   conf.Channel.FetchTimeout,
	}, tracker, log)
	engine.OnVisibilityChanged(func(visible bool) {
		if visible {
			sub.Activate()
		} else {
			sub.Deactivate()
		}
	})
	engine.SetProperties(conf.Face.LowBitAmbient)
	engine.SetInsets(conf.Face.Round)

	return &sim{
		hub:        hub,
		scheduler:  scheduler,
		engine:     engine,
		subscriber: sub,
		tracker:    tracker,
		live:       live,
	}, nil
}

func run(ctx context.Context, conf *config.Config, opts options, out io.Writer, log *logger.Logger) error {
	if opts.cycle <= 0 {
		return fmt.Errorf("invalid cycle: %v", opts.cycle)
	}
	s, err := newSim(ctx, conf, opts, out, log)
	if err != nil {
		return err
	}

	engineCtx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = s.engine.Run(engineCtx)
	}()
	defer func() {
		deactivated := make(chan struct{})
		if s.engine.Post(func() { s.subscriber.Deactivate(); close(deactivated) }) {
			<-deactivated
		}
		cancel()
		<-engineDone
	}()

	s.scheduler.Start()
	defer func() {
		if err := s.scheduler.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", logger.Err(err))
		}
	}()

	if conf.HTTP.Port != "" {
		srv := web.New(conf.HTTP.Port, s.tracker, log,
			web.WithLive(s.live),
			web.WithSync(
				func() {
					if err := s.scheduler.Trigger(); err != nil {
						log.Warn("manual sync failed", logger.Err(err))
					}
				},
				func() time.Time {
					next, _ := s.scheduler.NextRun()
					return next
				},
			))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", logger.Err(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", conf.HTTP.Port)
	}

	s.engine.SetAmbient(false)
	s.engine.SetVisible(true)
	log.Info("simulator started", "cycle", opts.cycle, "ambient_every", opts.ambientEvery, "drop_every", opts.dropEvery)

	s.drive(ctx, opts)
	log.Info("shutting down")
	return nil
}

// drive plays the host and the network until ctx is done.
func (s *sim) drive(ctx context.Context, opts options) {
	var ambientC, dropC <-chan time.Time
	if opts.ambientEvery > 0 {
		t := time.NewTicker(opts.ambientEvery)
		defer t.Stop()
		ambientC = t.C
	}
	if opts.dropEvery > 0 {
		t := time.NewTicker(opts.dropEvery)
		defer t.Stop()
		dropC = t.C
	}
	minute := time.NewTicker(time.Minute)
	defer minute.Stop()

	ambient, reachable := false, true
	for {
		select {
		case <-ctx.Done():
			return
		case <-minute.C:
			s.engine.TimeTick()
		case <-ambientC:
			ambient = !ambient
			s.engine.SetAmbient(ambient)
		case <-dropC:
			reachable = !reachable
			s.hub.SetReachable(reachable)
			if reachable {
				// Wake the face so the subscriber reconnects.
				s.engine.SetVisible(false)
				s.engine.SetVisible(true)
			}
		}
	}
}
