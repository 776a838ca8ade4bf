package main

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/weather-sync/internal/config"
	"github.com/sweeney/weather-sync/internal/datasource"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/weather"
)

func TestSampleFetcherCycles(t *testing.T) {
	f := &sampleFetcher{samples: samples[:2]}
	want := []weather.Snapshot{samples[0], samples[1], samples[0]}
	for i, w := range want {
		got, err := f.Fetch(context.Background(), datasource.Location{})
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if got != w {
			t.Errorf("fetch %d: got %+v, want %+v", i, got, w)
		}
	}
}

func TestSampleFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &sampleFetcher{samples: samples}
	if _, err := f.Fetch(ctx, datasource.Location{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSamplesHaveArt(t *testing.T) {
	for _, s := range samples {
		if _, ok := weather.ArtForCondition(s.ConditionID); !ok {
			t.Errorf("condition %d has no art", s.ConditionID)
		}
	}
}

func TestSimSyncsFirstSample(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := newSim(ctx, &config.Config{}, options{cycle: time.Hour}, nil, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = s.engine.Run(ctx)
	}()
	s.scheduler.Start()
	defer s.scheduler.Shutdown()
	s.engine.SetVisible(true)

	deadline := time.Now().Add(5 * time.Second)
	for s.tracker.Snapshot().Display.Applied == 0 {
		if time.Now().After(deadline) {
			t.Fatal("face never applied a snapshot")
		}
		time.Sleep(10 * time.Millisecond)
	}

	d := s.tracker.Snapshot().Display
	if d.Weather != samples[0] {
		t.Errorf("applied: got %+v, want %+v", d.Weather, samples[0])
	}
	if _, ok := s.hub.Record(watchNode, weather.Path); !ok {
		t.Error("watch replica has no weather record")
	}

	cancel()
	<-engineDone
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	opts := options{cycle: 50 * time.Millisecond, ambientEvery: 30 * time.Millisecond, dropEvery: 70 * time.Millisecond}
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, &config.Config{}, opts, nil, logger.Discard()) }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run: got %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestRunRejectsZeroCycle(t *testing.T) {
	if err := run(context.Background(), &config.Config{}, options{}, nil, logger.Discard()); err == nil {
		t.Error("expected error for zero cycle")
	}
}
