// Package face is the display engine: a single-goroutine loop owning the
// display state, the interactive tick timer and the redraw step.
//
// Every exported method other than Run, Post and the mode callbacks is
// meant to be called from a closure running on the loop.
package face

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/weather-sync/internal/logger"
	"github.com/sweeney/weather-sync/internal/status"
	"github.com/sweeney/weather-sync/internal/weather"
)

// Mode is the engine's display mode.
type Mode int

const (
	Invisible Mode = iota
	VisibleInteractive
	VisibleAmbient
)

func (m Mode) String() string {
	switch m {
	case Invisible:
		return "INVISIBLE"
	case VisibleInteractive:
		return "VISIBLE_INTERACTIVE"
	case VisibleAmbient:
		return "VISIBLE_AMBIENT"
	}
	return "UNKNOWN"
}

// DisplayState is the presentation cache owned by the engine loop.
type DisplayState struct {
	Snapshot      weather.Snapshot
	Icon          string
	Ambient       bool
	Visible       bool
	LowBitAmbient bool
	Round         bool
}

// Mode derives the display mode from the flags.
func (s DisplayState) Mode() Mode {
	switch {
	case !s.Visible:
		return Invisible
	case s.Ambient:
		return VisibleAmbient
	default:
		return VisibleInteractive
	}
}

// Options configure an Engine. Zero values select defaults.
type Options struct {
	Clock     clockwork.Clock
	Period    time.Duration
	Use24Hour bool
	// Zone returns the display time zone. It is re-read whenever the
	// display becomes visible.
	Zone        func() *time.Location
	Coordinates *Coordinates
	Bounds      Bounds
	Surfaces    []Surface
	Tracker     *status.Tracker
	QueueSize   int
}

// Engine runs the display loop.
type Engine struct {
	opts   Options
	clock  clockwork.Clock
	log    *logger.Logger
	events chan func()
	done   chan struct{}

	// Loop-confined.
	state        DisplayState
	zone         *time.Location
	timer        *tickTimer
	nextTickAt   time.Time
	frames       int
	lastFrame    Frame
	onVisibility []func(visible bool)
}

// New creates an engine in the Invisible state showing the default snapshot.
func New(opts Options, log *logger.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Zone == nil {
		opts.Zone = func() *time.Location { return time.Local }
	}
	if opts.Bounds == (Bounds{}) {
		opts.Bounds = Bounds{Width: CanvasWidth, Height: CanvasHeight}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	icon, _ := weather.ArtForCondition(weather.Default.ConditionID)
	e := &Engine{
		opts:   opts,
		clock:  opts.Clock,
		log:    log.With("component", "face"),
		events: make(chan func(), opts.QueueSize),
		done:   make(chan struct{}),
		state:  DisplayState{Snapshot: weather.Default, Icon: icon},
		zone:   opts.Zone(),
	}
	e.timer = newTickTimer(e.clock, e.Post)
	return e
}

// Run processes posted closures until ctx is done. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.timer.cancel()
	e.recordMode()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-e.events:
			fn()
		}
	}
}

// Post queues fn to run on the loop. It reports false once the loop has
// stopped.
func (e *Engine) Post(fn func()) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.events <- fn:
		return true
	case <-e.done:
		return false
	}
}

// SetVisible is the host's visibility callback.
func (e *Engine) SetVisible(visible bool) { e.Post(func() { e.setVisible(visible) }) }

// SetAmbient is the host's ambient-mode callback.
func (e *Engine) SetAmbient(ambient bool) { e.Post(func() { e.setAmbient(ambient) }) }

// SetProperties reports display capabilities.
func (e *Engine) SetProperties(lowBitAmbient bool) {
	e.Post(func() { e.setProperties(lowBitAmbient) })
}

// SetInsets reports the display shape.
func (e *Engine) SetInsets(round bool) { e.Post(func() { e.setInsets(round) }) }

// TimeTick is the host's once-a-minute tick, used in ambient mode.
func (e *Engine) TimeTick() { e.Post(e.redraw) }

// OnVisibilityChanged registers fn to run on the loop whenever visibility
// changes.
func (e *Engine) OnVisibilityChanged(fn func(visible bool)) {
	e.onVisibility = append(e.onVisibility, fn)
}

// State returns the current display state.
func (e *Engine) State() DisplayState { return e.state }

// Mode returns the current mode.
func (e *Engine) Mode() Mode { return e.state.Mode() }

// Frames is the number of frames drawn so far.
func (e *Engine) Frames() int { return e.frames }

// LastFrame returns the most recently drawn frame.
func (e *Engine) LastFrame() Frame { return e.lastFrame }

// NextTickAt is when the pending interactive tick fires, or zero.
func (e *Engine) NextTickAt() time.Time { return e.nextTickAt }

// Apply replaces the displayed snapshot and redraws. An unknown condition
// keeps the previous icon. Applying an equal snapshot leaves the state as it
// was.
func (e *Engine) Apply(s weather.Snapshot) {
	e.state.Snapshot = s
	if icon, ok := weather.ArtForCondition(s.ConditionID); ok {
		e.state.Icon = icon
	} else {
		e.log.Debug("no art for condition, keeping icon", "condition", s.ConditionID, "icon", e.state.Icon)
	}
	if e.opts.Tracker != nil {
		e.opts.Tracker.RecordApplied(s, e.clock.Now())
	}
	e.redraw()
}

// Draw builds the frame for now using the current state.
func (e *Engine) Draw(now time.Time, bounds Bounds) Frame {
	return render(e.state, now.In(e.zone), bounds, drawOptions{
		use24Hour: e.opts.Use24Hour,
		coords:    e.opts.Coordinates,
	})
}

func (e *Engine) setVisible(visible bool) {
	changed := e.state.Visible != visible
	e.state.Visible = visible
	if visible {
		e.zone = e.opts.Zone()
	}
	if changed {
		e.log.Debug("visibility changed", "visible", visible)
		for _, fn := range e.onVisibility {
			fn(visible)
		}
		e.recordMode()
		if visible && e.state.Ambient {
			e.redraw()
		}
	}
	e.updateTimer()
}

func (e *Engine) setAmbient(ambient bool) {
	if e.state.Ambient != ambient {
		e.state.Ambient = ambient
		e.log.Debug("ambient changed", "ambient", ambient)
		e.recordMode()
		e.redraw()
	}
	e.updateTimer()
}

func (e *Engine) setProperties(lowBitAmbient bool) {
	e.state.LowBitAmbient = lowBitAmbient
}

func (e *Engine) setInsets(round bool) {
	if e.state.Round != round {
		e.state.Round = round
		e.redraw()
	}
}

func (e *Engine) shouldTick() bool {
	return e.state.Visible && !e.state.Ambient
}

// updateTimer cancels any pending tick and, if ticking is allowed, ticks
// right away.
func (e *Engine) updateTimer() {
	e.timer.cancel()
	e.nextTickAt = time.Time{}
	if e.shouldTick() {
		e.tick()
	}
}

func (e *Engine) tick() {
	e.redraw()
	if !e.shouldTick() {
		e.nextTickAt = time.Time{}
		return
	}
	now := e.clock.Now()
	delay := NextTickDelay(now, e.opts.Period)
	e.nextTickAt = now.Add(delay)
	e.timer.schedule(delay, e.tick)
}

// redraw renders a frame to every surface. Nothing is drawn while invisible.
func (e *Engine) redraw() {
	if !e.state.Visible {
		return
	}
	f := e.Draw(e.clock.Now(), e.opts.Bounds)
	e.frames++
	e.lastFrame = f
	for _, s := range e.opts.Surfaces {
		if err := s.Render(f); err != nil {
			e.log.Warn("surface render failed", logger.Err(err))
		}
	}
}

func (e *Engine) recordMode() {
	if e.opts.Tracker != nil {
		e.opts.Tracker.SetMode(e.state.Mode().String())
	}
}
