// Package avatar models the character the playback scheduler drives.
//
// A loaded model exposes one of two capability variants, selected once at
// load time: a ChannelTarget when the model declares named expression
// channels, or a TransformTarget when only generic transform mutation is
// available (a placeholder visual). The scheduler never probes capabilities
// itself; it hands cues to Apply and this package routes them.
package avatar

import (
	"time"

	"github.com/tastetalk/go-tastetalk/pkg/emotion"
)

// Expression channels tracked on a channel-capable avatar. Applying any
// non-neutral cue zeroes all of these first so overlapping cues never blend.
var Channels = []string{"neutral", "happy", "sad", "surprised", "angry"}

// Fallback auto-revert delays for the placeholder path. These are fixed and
// independent of the marker's own hold duration.
const (
	joyPulseRevert       = 500 * time.Millisecond
	surprisedPulseRevert = 300 * time.Millisecond
	satisfiedLiftRevert  = 1000 * time.Millisecond
)

// Target is anything the scheduler can drive. Concrete targets implement
// exactly one of ChannelTarget or TransformTarget.
type Target interface {
	// Name identifies the target for logs.
	Name() string

	// PlayIdle starts the base idle animation, if the target has one.
	PlayIdle()

	// Close releases resources owned by the target.
	Close() error
}

// ChannelTarget is an avatar with named, independently-weighted expression
// channels.
type ChannelTarget interface {
	Target

	// SetExpressionWeight sets one channel's weight. Weights are [0, 1].
	SetExpressionWeight(channel string, weight float64)
}

// TransformTarget is a degraded avatar that only supports generic transform
// mutation. Pulses revert on their own after the given delay.
type TransformTarget interface {
	Target

	// PulseScale applies a transient uniform scale bump.
	PulseScale(amount float64, revertAfter time.Duration)

	// PulseLift applies a transient vertical offset.
	PulseLift(amount float64, revertAfter time.Duration)
}

// Apply drives one emotion cue onto the target, routing to the capability
// variant the target supports. Unknown target kinds are ignored.
func Apply(t Target, e emotion.Emotion, intensity float64) {
	switch tgt := t.(type) {
	case ChannelTarget:
		applyChannels(tgt, e, intensity)
	case TransformTarget:
		applyTransform(tgt, e, intensity)
	}
}

// ApplyNeutral reverts the target to its resting expression.
func ApplyNeutral(t Target) {
	Apply(t, emotion.Neutral, 1.0)
}

// applyChannels maps an emotion cue to expression weights. A cue is a full
// override, not additive blending: all tracked channels are zeroed first.
func applyChannels(t ChannelTarget, e emotion.Emotion, intensity float64) {
	for _, ch := range Channels {
		t.SetExpressionWeight(ch, 0)
	}

	switch e {
	case emotion.Joy:
		t.SetExpressionWeight("happy", intensity)
	case emotion.Surprised:
		t.SetExpressionWeight("surprised", intensity)
	case emotion.Satisfied:
		t.SetExpressionWeight("happy", intensity*0.7)
	default:
		t.SetExpressionWeight("neutral", 1.0)
	}
}

// applyTransform maps an emotion cue to the placeholder's generic effects.
// Neutral is a no-op here: pulses revert on their own.
func applyTransform(t TransformTarget, e emotion.Emotion, intensity float64) {
	switch e {
	case emotion.Joy:
		t.PulseScale(intensity*0.1, joyPulseRevert)
	case emotion.Surprised:
		t.PulseScale(intensity*0.15, surprisedPulseRevert)
	case emotion.Satisfied:
		t.PulseLift(intensity*0.1, satisfiedLiftRevert)
	}
}
