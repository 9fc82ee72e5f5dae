package avatar

import (
	"sync"
	"time"
)

// MemoryTarget implements ChannelTarget for testing and headless demos.
// It records every weight application with a timestamp.
type MemoryTarget struct {
	mu     sync.Mutex
	events []WeightEvent
	idle   bool
}

// WeightEvent records one SetExpressionWeight call.
type WeightEvent struct {
	Channel string
	Weight  float64
	At      time.Time
}

// NewMemoryTarget creates an empty recording target.
func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{}
}

// Name implements Target.
func (m *MemoryTarget) Name() string { return "memory" }

// SetExpressionWeight records the application.
func (m *MemoryTarget) SetExpressionWeight(channel string, weight float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, WeightEvent{Channel: channel, Weight: weight, At: time.Now()})
}

// PlayIdle implements Target.
func (m *MemoryTarget) PlayIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle = true
}

// Close implements Target.
func (m *MemoryTarget) Close() error { return nil }

// Events returns a copy of all recorded applications.
func (m *MemoryTarget) Events() []WeightEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WeightEvent, len(m.events))
	copy(out, m.events)
	return out
}

// NonZero returns only the applications with a non-zero weight, in order.
// The zeroing sweep before each cue is noise for most assertions.
func (m *MemoryTarget) NonZero() []WeightEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WeightEvent
	for _, e := range m.events {
		if e.Weight != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded events.
func (m *MemoryTarget) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

var _ ChannelTarget = (*MemoryTarget)(nil)
