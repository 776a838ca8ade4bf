package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/weather-sync/internal/channel"
	"github.com/sweeney/weather-sync/internal/datasource"
	"github.com/sweeney/weather-sync/internal/face"
	"github.com/sweeney/weather-sync/internal/gpio"
	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/logic"
	"github.com/sweeney/weather-sync/internal/publisher"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/subscriber"
	"github.com/sweeney/weather-sync/internal/weather"
)

// syncSurface records frames rendered on the engine goroutine.
type syncSurface struct {
	mu     sync.Mutex
	frames []face.Frame
}

func (s *syncSurface) Render(f face.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *syncSurface) last() (face.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return face.Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// rig is a phone publisher and a watch face sharing an in-memory hub.
type rig struct {
	hub     *channel.Hub
	store   *datasource.Store
	loc     datasource.Location
	pub     *publisher.Publisher
	engine  *face.Engine
	sub     *subscriber.Subscriber
	surface *syncSurface
	tracker *status.Tracker

	detector  *logic.Detector
	clock     time.Time
	baselined bool
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := logger.Discard()
	hub := channel.NewHub(log, 0)
	phone := hub.Dialer("phone")
	watch := hub.Dialer("watch")

	loc := datasource.Location{Name: "home"}
	store := datasource.NewStore(time.Hour)
	pub := publisher.New(phone, store, publisher.Config{Location: loc}, nil, log)

	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	surface := &syncSurface{}
	tracker := status.NewTracker(start, status.Config{Role: "face"})
	engine := face.New(face.Options{
		Clock:     clockwork.NewFakeClockAt(start),
		Use24Hour: true,
		Zone:      func() *time.Location { return time.UTC },
		Surfaces:  []face.Surface{surface},
		Tracker:   tracker,
	}, log)
	sub := subscriber.New(watch, engine, engine, subscriber.Config{}, tracker, log)
	engine.OnVisibilityChanged(func(visible bool) {
		if visible {
			sub.Activate()
		} else {
			sub.Deactivate()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()
	t.Cleanup(func() {
		deactivated := make(chan struct{})
		if engine.Post(func() { sub.Deactivate(); close(deactivated) }) {
			<-deactivated
		}
		cancel()
		<-done
	})

	return &rig{
		hub:      hub,
		store:    store,
		loc:      loc,
		pub:      pub,
		engine:   engine,
		sub:      sub,
		surface:  surface,
		tracker:  tracker,
		detector: logic.NewDetector(250*time.Millisecond, start),
		clock:    start,
	}
}

// publish stores s as the phone's current weather and publishes it.
func (r *rig) publish(t *testing.T, s weather.Snapshot) {
	t.Helper()
	r.store.Put(r.loc, s)
	if got := r.pub.Publish(context.Background()); got != publisher.OutcomeSuccess {
		t.Fatalf("publish: got %s, want SUCCESS", got)
	}
}

// feed polls the host switches the way the face binary does.
func (r *rig) feed(reader gpio.Reader, n int) {
	for i := 0; i < n; i++ {
		r.clock = r.clock.Add(100 * time.Millisecond)
		displayOn, lowPower, err := reader.Read()
		if err != nil {
			continue
		}
		events := r.detector.Process(logic.Input{DisplayOn: displayOn, LowPower: lowPower, Time: r.clock})
		if !r.detector.IsBaselined() {
			continue
		}
		if !r.baselined {
			display, ambient := r.detector.CurrentState()
			r.engine.SetAmbient(ambient == logic.StateOn)
			r.engine.SetVisible(display == logic.StateOn)
			r.baselined = true
		}
		for _, ev := range events {
			switch ev.Type {
			case logic.EventDisplayOn:
				r.engine.SetVisible(true)
			case logic.EventDisplayOff:
				r.engine.SetVisible(false)
			case logic.EventAmbientOn:
				r.engine.SetAmbient(true)
			case logic.EventAmbientOff:
				r.engine.SetAmbient(false)
			}
		}
	}
}

func (r *rig) applied() int { return r.tracker.Snapshot().Display.Applied }

func (r *rig) showsHigh(want string) func() bool {
	return func() bool {
		f, ok := r.surface.last()
		return ok && f.Text("high") == want
	}
}

func repeat(s gpio.Sample, n int) []gpio.Sample {
	out := make([]gpio.Sample, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// TestIntegrationFullFlow follows the weather from the phone's store to the
// watch face across visibility and ambient changes.
func TestIntegrationFullFlow(t *testing.T) {
	r := newRig(t)
	rain := weather.Snapshot{ConditionID: 500, High: 12, Low: 4}
	sunny := weather.Snapshot{ConditionID: 800, High: 19, Low: 8}
	snow := weather.Snapshot{ConditionID: 601, High: -1, Low: -6}

	// Published while the face is off: it waits in the watch replica.
	r.publish(t, rain)
	if _, ok := r.hub.Record("watch", weather.Path); !ok {
		t.Fatal("watch replica has no weather record")
	}

	off := gpio.Sample{}
	on := gpio.Sample{DisplayOn: true}
	onLow := gpio.Sample{DisplayOn: true, LowPower: true}

	// Baseline with the display off, then switch it on.
	r.feed(gpio.NewFakeReader(append(repeat(off, 4), repeat(on, 4)...)), 8)
	waitFor(t, "first snapshot", func() bool { return r.applied() >= 1 })
	waitFor(t, "rain on the face", r.showsHigh("12°"))
	if got := r.tracker.Snapshot().Display.Weather; got != rain {
		t.Errorf("applied: got %+v, want %+v", got, rain)
	}

	// A publish while listening arrives as a notification.
	r.publish(t, sunny)
	waitFor(t, "clear on the face", r.showsHigh("19°"))

	// Ambient drops the low temperature and the seconds.
	r.feed(gpio.NewFakeReader(repeat(onLow, 4)), 4)
	waitFor(t, "ambient frame", func() bool {
		f, ok := r.surface.last()
		return ok && f.Mode == face.VisibleAmbient.String()
	})
	f, _ := r.surface.last()
	if f.Has("low") {
		t.Error("ambient frame shows the low temperature")
	}
	if f.Text("high") != "19°" {
		t.Errorf("ambient high: got %q, want %q", f.Text("high"), "19°")
	}

	// Display off: the subscriber closes its session.
	r.feed(gpio.NewFakeReader(repeat(off, 4)), 4)
	waitFor(t, "subscriber idle", func() bool {
		return r.tracker.Snapshot().ChannelState == "DISCONNECTED"
	})
	before := r.applied()
	r.publish(t, snow)
	time.Sleep(50 * time.Millisecond)
	if got := r.applied(); got != before {
		t.Errorf("applied while invisible: got %d, want %d", got, before)
	}

	// Back on: the fetch picks up what was published while away.
	r.feed(gpio.NewFakeReader(repeat(on, 4)), 4)
	waitFor(t, "snow on the face", r.showsHigh("-1°"))
}

// TestIntegrationUnreachableChannel checks that neither side retries on its
// own and that the next visibility transition recovers.
func TestIntegrationUnreachableChannel(t *testing.T) {
	r := newRig(t)
	r.hub.SetReachable(false)

	r.store.Put(r.loc, weather.Snapshot{ConditionID: 802, High: 15, Low: 9})
	if got := r.pub.Publish(context.Background()); got != publisher.OutcomeNotConnected {
		t.Fatalf("publish: got %s, want NOT_CONNECTED", got)
	}

	r.hub.SetReachable(true)
	if got := r.pub.Publish(context.Background()); got != publisher.OutcomeSuccess {
		t.Fatalf("publish: got %s, want SUCCESS", got)
	}

	r.engine.SetVisible(true)
	waitFor(t, "clouds on the face", r.showsHigh("15°"))
}
