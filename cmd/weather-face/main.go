// Command weather-face drives the companion display: it follows the host's
// display switches, keeps the weather in sync while visible and redraws the
// face.
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
	"github.com/sweeney/weather-sync/internal/face"
	"github.com/sweeney/weather-sync/internal/gpio"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/logic"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/subscriber"
	"github.com/sweeney/weather-sync/internal/web"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml, json or toml)")
	printState := flag.Bool("print-state", false, "Print current host signal levels and exit")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(conf.LogLevel.Level())

	if err := run(conf, log, *printState); err != nil {
		log.Error("fatal", logger.Err(err))
		os.Exit(1)
	}
}

func run(conf *config.Config, log *logger.Logger, printState bool) error {
	reader, err := openReader(conf)
	if err != nil {
		return err
	}
	defer reader.Close()

	if printState {
		display, lowPower, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("DISPLAY: %s, LOW_POWER: %s\n", stateString(display), stateString(lowPower))
		return nil
	}

	dialer := channel.NewMQTTDialer(conf.Broker.URL, conf.Broker.Prefix, channel.NodeID(conf.Channel.Node), log)
	dialer.ClientIDPrefix = conf.Broker.ClientID + "-face"
	dialer.RetainedWait = conf.Channel.RetainedWait

	tracker := status.NewTracker(time.Now(), status.Config{
		Role:        "face",
		Node:        string(dialer.Node),
		Broker:      conf.Broker.URL,
		TopicPrefix: conf.Broker.Prefix,
		HTTPPort:    conf.HTTP.Port,
		PollMs:      conf.GPIO.Poll.Milliseconds(),
		DebounceMs:  conf.GPIO.Debounce.Milliseconds(),
	})

	live := web.NewLiveSurface(log)
	engine, sub := buildFace(conf, dialer, tracker, log, live)

	ctx, cancel := context.WithCancel(context.Background())
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = engine.Run(ctx)
	}()
	defer func() {
		// Close the subscriber's session on the loop before stopping it.
		deactivated := make(chan struct{})
		if engine.Post(func() { sub.Deactivate(); close(deactivated) }) {
			<-deactivated
		}
		cancel()
		<-engineDone
	}()

	if conf.HTTP.Port != "" {
		srv := web.New(conf.HTTP.Port, tracker, log, web.WithLive(live))
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
		"input", conf.GPIO.Input,
		"poll", conf.GPIO.Poll,
		"debounce", conf.GPIO.Debounce,
		"heartbeat", conf.GPIO.Heartbeat,
	)

	ticker := time.NewTicker(conf.GPIO.Poll)
	defer ticker.Stop()
	minute := time.NewTicker(time.Minute)
	defer minute.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, engine, tracker, log, conf.GPIO.Debounce, conf.GPIO.Heartbeat, time.Now, ticker.C, minute.C, sigCh)
}

// buildFace wires the display engine to its subscriber. The subscriber is
// active exactly while the face is visible.
func buildFace(conf *config.Config, dialer channel.Dialer, tracker *status.Tracker, log *logger.Logger, surfaces ...face.Surface) (*face.Engine, *subscriber.Subscriber) {
	if conf.Face.Text {
		surfaces = append(surfaces, face.NewTextSurface(os.Stdout, conf.Face.TextCols, conf.Face.TextRows))
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
	sub := subscriber.New(dialer, engine, engine, subscriber.Config{
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
	return engine, sub
}

func openReader(conf *config.Config) (gpio.Reader, error) {
	if conf.GPIO.Input == config.InputFixed {
		return gpio.Fixed{DisplayOn: !conf.GPIO.FixedDisplayOff, LowPower: conf.GPIO.FixedLowPower}, nil
	}
	r, err := gpio.NewRealReader(conf.GPIO.Chip, conf.GPIO.PinDisplay, conf.GPIO.PinLowPower)
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}
	return r, nil
}

// host is the display engine as seen by the run loop.
type host interface {
	SetVisible(visible bool)
	SetAmbient(ambient bool)
	TimeTick()
}

func runLoop(reader gpio.Reader, h host, tracker *status.Tracker, log *logger.Logger, debounce, heartbeat time.Duration, now func() time.Time, tick, minute <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(debounce, startTime)
	applied := false

	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			log.Info("shutting down", "signal", signalName)
			return nil

		case <-minute:
			h.TimeTick()

		case <-tick:
			t := now()
			displayOn, lowPower, err := reader.Read()
			if err != nil {
				log.Warn("gpio read error", logger.Err(err))
				continue
			}

			events := detector.Process(logic.Input{DisplayOn: displayOn, LowPower: lowPower, Time: t})
			if !detector.IsBaselined() {
				// Still waiting for baseline
				continue
			}

			if !applied {
				display, ambient := detector.CurrentState()
				log.Info("baseline", "display", string(display), "ambient", string(ambient))
				h.SetAmbient(ambient == logic.StateOn)
				h.SetVisible(display == logic.StateOn)
				applied = true
			}

			for _, event := range events {
				log.Info("event", "type", string(event.Type), "display", string(event.Display), "ambient", string(event.Ambient))
				switch event.Type {
				case logic.EventDisplayOn:
					h.SetVisible(true)
				case logic.EventDisplayOff:
					h.SetVisible(false)
				case logic.EventAmbientOn:
					h.SetAmbient(true)
				case logic.EventAmbientOff:
					h.SetAmbient(false)
				}
			}

			if hb := detector.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Info("heartbeat",
					"uptime", hb.Uptime,
					"display_on", hb.Counts.DisplayOn,
					"display_off", hb.Counts.DisplayOff,
					"ambient_on", hb.Counts.AmbientOn,
					"ambient_off", hb.Counts.AmbientOff,
				)
			}

			if tracker != nil {
				display, ambient := detector.CurrentState()
				tracker.UpdateSignals(display, ambient, detector.IsBaselined(), detector.Counts())
			}
		}
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
