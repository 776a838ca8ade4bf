package channel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeSessionRecordsPuts(t *testing.T) {
	f := NewFakeSession("n1")
	if err := f.Connect(time.Second); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := f.PutRecord(context.Background(), "/weather", DataMap{"weather_id": 800}, true); err != nil {
		t.Fatalf("put: %v", err)
	}
	if f.PutCount() != 1 {
		t.Fatalf("expected 1 put, got %d", f.PutCount())
	}
	if !f.Puts[0].Urgent || f.Puts[0].Path != "/weather" {
		t.Errorf("put: got %+v", f.Puts[0])
	}
}

func TestFakeSessionConnectHang(t *testing.T) {
	f := NewFakeSession("n1")
	f.ConnectHang = true
	err := f.Connect(10 * time.Millisecond)
	if !errors.Is(err, ErrConnectionTimeout) {
		t.Errorf("got %v, want ErrConnectionTimeout", err)
	}
	if f.State() != Disconnected {
		t.Errorf("state: got %s", f.State())
	}
}

func TestFakeSessionPutBlockHonoursContext(t *testing.T) {
	f := NewFakeSession("n1")
	f.PutBlock = make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.PutRecord(ctx, "/weather", DataMap{}, true)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("got %v, want ErrDeliveryFailed", err)
	}
}

func TestFakeDialer(t *testing.T) {
	d := &FakeDialer{Node: "n1"}
	obs := newRecordingObserver()
	s := d.Dial(obs)
	if d.Count() != 1 || d.Last() != s {
		t.Fatalf("dialer did not record session")
	}
	if err := s.Connect(time.Second); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if obs.connected != 1 {
		t.Errorf("observer connected: got %d, want 1", obs.connected)
	}

	s.(*FakeSession).Emit(ChangeEvent{Path: "/weather"})
	if err := s.Subscribe(context.Background(), obs); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	s.(*FakeSession).Emit(ChangeEvent{Path: "/weather"})
	evs := obs.waitEvents(t)
	if len(evs) != 1 {
		t.Errorf("events: got %d, want 1", len(evs))
	}
}
