// Command weather-publisher refreshes the local weather snapshot and
// publishes it to the channel on a schedule and on demand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/weather-sync/internal/channel"
	"github.com/sweeney/weather-sync/internal/config"
	"github.com/sweeney/weather-sync/internal/datasource"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/publisher"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/web"
	"github.com/sweeney/weather-sync/internal/weather"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	once := flag.Bool("once", false, "refresh and publish once, then exit")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(conf.LogLevel.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, log, *once); err != nil {
		log.Error("fatal", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *config.Config, log *logger.Logger, once bool) error {
	dialer := channel.NewMQTTDialer(conf.Broker.URL, conf.Broker.Prefix, channel.NodeID(conf.Channel.Node), log)
	dialer.ClientIDPrefix = conf.Broker.ClientID + "-publisher"
	dialer.RetainedWait = conf.Channel.RetainedWait

	loc := location(conf)
	source, refresher, err := buildSource(conf, loc, log)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Role:         "publisher",
		Node:         string(dialer.Node),
		Broker:       conf.Broker.URL,
		TopicPrefix:  conf.Broker.Prefix,
		HTTPPort:     conf.HTTP.Port,
		SyncInterval: conf.Sync.Interval,
	})
	pub := publisher.New(dialer, source, publisher.Config{
		Location:        loc,
		ConnectTimeout:  conf.Channel.ConnectTimeout,
		DeliveryTimeout: conf.Channel.DeliveryTimeout,
	}, tracker, log)

	if once {
		if refresher != nil {
			_ = refresher.Refresh(ctx)
		}
		outcome := pub.Publish(ctx)
		log.Info("publish finished", "outcome", outcome.String())
		return nil
	}

	sched, err := publisher.NewScheduler(ctx, conf.Sync.Interval, pub, refresher, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", logger.Err(err))
		}
	}()

	if conf.HTTP.Port != "" {
		srv := web.New(conf.HTTP.Port, tracker, log, web.WithSync(
			func() {
				if err := sched.Trigger(); err != nil {
					log.Warn("manual sync failed", logger.Err(err))
				}
			},
			func() time.Time {
				next, _ := sched.NextRun()
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

	log.Info("started",
		"broker", conf.Broker.URL,
		"node", string(dialer.Node),
		"interval", conf.Sync.Interval,
		"source", conf.Location.Source,
		"location", loc.Key(),
	)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func location(conf *config.Config) datasource.Location {
	return datasource.Location{
		Name:      conf.Location.Name,
		Latitude:  conf.Location.Latitude,
		Longitude: conf.Location.Longitude,
	}
}

// buildSource returns the publisher's data source and the refresher that
// fills it. The refresher is nil for sources that need no refreshing.
func buildSource(conf *config.Config, loc datasource.Location, log *logger.Logger) (datasource.Source, publisher.Refresher, error) {
	switch conf.Location.Source {
	case config.SourceStatic:
		return datasource.Static{Snapshot: staticSnapshot(conf)}, nil, nil
	case config.SourceOpenMeteo:
		om, err := datasource.NewOpenMeteo(conf.Units)
		if err != nil {
			return nil, nil, fmt.Errorf("init open-meteo: %w", err)
		}
		store := datasource.NewStore(conf.Sync.MaxAge)
		return store, datasource.NewRefresher(om, store, loc, log), nil
	}
	return nil, nil, fmt.Errorf("unknown location source %q", conf.Location.Source)
}

func staticSnapshot(conf *config.Config) weather.Snapshot {
	s := conf.Location.Static
	return weather.Snapshot{ConditionID: s.ConditionID, High: s.High, Low: s.Low}
}
