// Package playback drives avatar expressions in sync with a narrated review.
//
// The Scheduler owns a timeline of emotion markers and fires each one at its
// absolute time relative to a start instant. Cancellation is epoch-based: a
// single generation counter, bumped on cancel or restart, turns every
// outstanding deferred action into a silent no-op at fire time. Timers are
// never tracked or stopped individually; a superseded run simply stops
// mattering. This removes the whole class of cancelled-but-still-fired races
// without per-timer bookkeeping.
//
// The Gate couples scheduler start to audio readiness: the visual timeline
// begins when the clip can play, or when autoplay was attempted and refused,
// but never when the clip failed to load.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tastetalk/go-tastetalk/pkg/avatar"
	"github.com/tastetalk/go-tastetalk/pkg/emotion"
)

// Scheduler plays emotion timelines against an avatar target.
// At most one run is current at any time; Start supersedes any predecessor.
type Scheduler struct {
	target avatar.Target
	logger *slog.Logger

	mu          sync.Mutex
	gen         uint64
	runID       string
	running     bool
	lastFired   int
	defaultHold time.Duration
	onComplete  func(runID string)
}

// Option is a functional option for configuring a Scheduler.
type Option func(*Scheduler)

// WithDefaultHold overrides the hold applied to markers without their own
// duration. Mostly useful in tests.
func WithDefaultHold(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.defaultHold = d
		}
	}
}

// WithRunComplete sets a hook invoked when a run's terminal revert fires.
// Superseded runs never complete.
func WithRunComplete(fn func(runID string)) Option {
	return func(s *Scheduler) {
		s.onComplete = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler driving the given target.
func NewScheduler(target avatar.Target, opts ...Option) *Scheduler {
	s := &Scheduler{
		target:      target,
		defaultHold: emotion.DefaultHold,
		logger:      slog.Default().With("component", "playback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new run of the timeline anchored at startAt, implicitly
// cancelling any run in progress. Markers fire at startAt+offset in source
// order; the scheduler does not sort, so out-of-order input fires out of
// order. Returns the new run's ID.
func (s *Scheduler) Start(tl emotion.Timeline, startAt time.Time) string {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	runID := uuid.NewString()
	s.runID = runID
	s.running = len(tl) > 0
	s.lastFired = -1
	hold := s.defaultHold
	s.mu.Unlock()

	if len(tl) == 0 {
		s.logger.Warn("empty timeline, nothing to play", "run", runID)
		return runID
	}

	// The revert belonging to the marker whose hold expires last is the
	// terminal transition back to idle.
	terminal := 0
	var lastEnd time.Duration
	ends := make([]time.Duration, len(tl))
	for i, m := range tl {
		ends[i] = m.Offset() + holdFor(m, hold)
		if ends[i] >= lastEnd {
			lastEnd = ends[i]
			terminal = i
		}
	}

	s.logger.Info("run started",
		"run", runID,
		"markers", len(tl),
		"span", lastEnd,
	)

	for i, m := range tl {
		i, m := i, m
		isTerminal := i == terminal
		fireAt := startAt.Add(m.Offset())
		revertAt := startAt.Add(ends[i])

		time.AfterFunc(time.Until(fireAt), func() {
			s.fire(gen, i, m)
		})
		time.AfterFunc(time.Until(revertAt), func() {
			s.revert(gen, i, isTerminal)
		})
	}

	return runID
}

// Cancel supersedes the current run. Every outstanding deferred action
// becomes a no-op on arrival. Idempotent; the generation only ever grows.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.gen++
	s.running = false
	s.mu.Unlock()
}

// Running reports whether a run is current and not yet finished.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Generation returns the current cancellation epoch.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fire applies one marker's cue, unless the run was superseded.
func (s *Scheduler) fire(gen uint64, seq int, m emotion.Marker) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return // superseded run, silent no-op
	}
	s.lastFired = seq
	s.mu.Unlock()

	avatar.Apply(s.target, m.Emotion, m.Intensity)
	s.logger.Debug("marker fired",
		"emotion", m.Emotion,
		"intensity", m.Intensity,
		"offset_ms", m.TimestampMs,
	)
}

// revert returns the target to neutral after a cue's hold. It no-ops when
// the run was superseded, and also when a later marker fired in the
// meantime: that marker preempted this cue and owns the expression now.
// The terminal revert ends the run either way.
func (s *Scheduler) revert(gen uint64, seq int, terminal bool) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	preempted := s.lastFired != seq
	var done func(string)
	var runID string
	if terminal {
		s.running = false
		done = s.onComplete
		runID = s.runID
	}
	s.mu.Unlock()

	if !preempted {
		avatar.ApplyNeutral(s.target)
	}

	if terminal {
		s.logger.Info("run complete", "run", runID)
		if done != nil {
			done(runID)
		}
	}
}

func holdFor(m emotion.Marker, defaultHold time.Duration) time.Duration {
	if m.DurationMs > 0 {
		return time.Duration(m.DurationMs) * time.Millisecond
	}
	return defaultHold
}
