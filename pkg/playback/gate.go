package playback

import (
	"log/slog"
	"sync"
	"time"
)

// GateState describes where a loaded clip is in its lifecycle.
type GateState int

const (
	// GateLoading means no clip has finished loading yet.
	GateLoading GateState = iota

	// GateReady means the animate-ready callback has fired for this clip.
	GateReady

	// GateUnplayable means the clip failed to load; the callback will not
	// fire for it.
	GateUnplayable
)

// String returns a human-readable state name.
func (s GateState) String() string {
	switch s {
	case GateLoading:
		return "loading"
	case GateReady:
		return "ready"
	case GateUnplayable:
		return "unplayable"
	default:
		return "unknown"
	}
}

// Gate couples the visual timeline to audio readiness. Audio reports
// readiness asynchronously and autoplay may be refused; the gate fires its
// ready callback exactly once per loaded clip, at the earlier of a
// successful play or a refused autoplay attempt. A refused autoplay must not
// freeze the emotion sequence, so both paths proceed. A load failure is a
// distinct unplayable state and never fires the callback.
type Gate struct {
	logger *slog.Logger

	mu      sync.Mutex
	state   GateState
	fired   bool
	lastErr error
	onReady func(start time.Time)
	play    func() error
}

// NewGate creates a gate that invokes onReady with the timing origin for the
// visual timeline.
func NewGate(onReady func(start time.Time)) *Gate {
	return &Gate{
		state:   GateLoading,
		onReady: onReady,
		logger:  slog.Default().With("component", "playback.gate"),
	}
}

// SetPlayer installs the autoplay attempt. A nil player counts as a
// successful play.
func (g *Gate) SetPlayer(play func() error) {
	g.mu.Lock()
	g.play = play
	g.mu.Unlock()
}

// Loaded signals that the current clip can play. The gate attempts autoplay
// and fires the ready callback whether or not the attempt was refused.
func (g *Gate) Loaded() {
	g.mu.Lock()
	if g.fired || g.state == GateUnplayable {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.state = GateReady
	play := g.play
	ready := g.onReady
	g.mu.Unlock()

	if play != nil {
		if err := play(); err != nil {
			// Autoplay refused; the visual timeline still proceeds,
			// decoupled from whether audio is audible.
			g.logger.Warn("autoplay refused, animating without audio", "error", err)
		}
	}

	if ready != nil {
		ready(time.Now())
	}
}

// Fail marks the current clip unplayable. The ready callback does not fire.
func (g *Gate) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fired {
		return
	}
	g.state = GateUnplayable
	g.lastErr = err
	g.logger.Error("audio clip unplayable", "error", err)
}

// Reset prepares the gate for the next clip.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = GateLoading
	g.fired = false
	g.lastErr = nil
}

// State returns the gate's current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the load error for an unplayable clip, if any.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}
