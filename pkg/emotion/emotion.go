// Package emotion defines the emotion-cue data model shared by the review
// relay and the avatar playback scheduler.
//
// A Marker is a timestamped instruction to display a given emotion at a given
// strength for a bounded hold period. Timelines are immutable: every review
// generation produces a fresh Timeline and supersedes the previous one
// wholesale, never mutating it in place.
package emotion

import "time"

// Emotion identifies a displayable emotion cue.
type Emotion string

const (
	Joy       Emotion = "joy"
	Surprised Emotion = "surprised"
	Satisfied Emotion = "satisfied"
	Neutral   Emotion = "neutral"
)

// Parse maps an arbitrary string to a recognized Emotion.
// Anything outside the four recognized values becomes Neutral.
func Parse(s string) Emotion {
	switch Emotion(s) {
	case Joy, Surprised, Satisfied, Neutral:
		return Emotion(s)
	default:
		return Neutral
	}
}

// DefaultHold is how long a cue is held before reverting to neutral when the
// marker carries no duration of its own.
const DefaultHold = 2 * time.Second

// Marker is one emotion cue on a playback timeline.
type Marker struct {
	// TimestampMs is the offset from playback start, in milliseconds.
	TimestampMs int `json:"timestamp"`

	// Emotion is the cue to display.
	Emotion Emotion `json:"emotion"`

	// Intensity is the cue strength in [0.0, 1.0].
	Intensity float64 `json:"intensity"`

	// DurationMs is the optional hold before reverting to neutral.
	// Zero means "use DefaultHold".
	DurationMs int `json:"duration,omitempty"`
}

// Offset returns the marker's fire offset as a duration.
func (m Marker) Offset() time.Duration {
	return time.Duration(m.TimestampMs) * time.Millisecond
}

// Hold returns the marker's hold period, falling back to DefaultHold.
func (m Marker) Hold() time.Duration {
	if m.DurationMs > 0 {
		return time.Duration(m.DurationMs) * time.Millisecond
	}
	return DefaultHold
}

// Timeline is an ordered sequence of markers. Order follows the source, not
// the timestamps; callers are responsible for sensible ordering.
type Timeline []Marker

// End returns the offset at which the last cue's hold expires.
func (t Timeline) End() time.Duration {
	var end time.Duration
	for _, m := range t {
		if e := m.Offset() + m.Hold(); e > end {
			end = e
		}
	}
	return end
}
