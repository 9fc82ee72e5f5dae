// Package voice provides a unified interface for speech synthesis backends.
//
// The bundled implementation talks to a VOICEVOX engine over its REST API.
// All backends implement the Synthesizer interface so callers can swap
// implementations (or a Mock in tests) without changing code.
//
// Example usage:
//
//	synth, _ := voice.NewVoicevox(
//	    voice.WithEndpoint("http://localhost:50021"),
//	    voice.WithSpeaker(4),
//	)
//	defer synth.Close()
//
//	clip, _ := synth.Synthesize(ctx, voice.Request{
//	    Text:    "このラーメン、最高です！",
//	    Emotion: voice.TagHappy,
//	})
package voice

import (
	"context"
	"encoding/base64"
	"time"
	"unicode/utf8"
)

// Synthesizer defines the speech synthesis interface.
type Synthesizer interface {
	// Synthesize converts text to a complete audio clip.
	Synthesize(ctx context.Context, req Request) (*Clip, error)

	// Speakers lists the voices the backend offers.
	Speakers(ctx context.Context) ([]Speaker, error)

	// Health checks backend connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Request describes one synthesis call.
type Request struct {
	// Text is the sentence to narrate.
	Text string

	// Emotion selects the prosody preset. Zero value is TagNeutral.
	Emotion EmotionTag

	// Speaker overrides the configured speaker ID when non-zero.
	Speaker int
}

// Clip is a complete synthesis result.
type Clip struct {
	// Audio contains WAV bytes as returned by the engine.
	Audio []byte

	// DurationMs is the estimated playback duration.
	DurationMs int

	// CharCount is the number of characters synthesized.
	CharCount int

	// Speaker is the voice that rendered the clip.
	Speaker int
}

// DataURL renders the clip as a data URL suitable for an audio element.
func (c *Clip) DataURL() string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(c.Audio)
}

// Speaker describes one voice offered by the engine.
type Speaker struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Style string `json:"style"`
}

// EmotionTag selects a prosody preset.
type EmotionTag string

const (
	TagNeutral   EmotionTag = "neutral"
	TagHappy     EmotionTag = "happy"
	TagExcited   EmotionTag = "excited"
	TagSatisfied EmotionTag = "satisfied"
)

// Prosody holds the multipliers a tag applies to the engine's audio query.
// Pitch is an additive offset; the rest scale the engine defaults.
type Prosody struct {
	Speed      float64
	Pitch      float64
	Intonation float64
	Volume     float64
}

var presets = map[EmotionTag]Prosody{
	TagNeutral:   {Speed: 1.0, Pitch: 0.0, Intonation: 1.0, Volume: 1.0},
	TagHappy:     {Speed: 1.1, Pitch: 0.1, Intonation: 1.2, Volume: 1.0},
	TagExcited:   {Speed: 1.2, Pitch: 0.15, Intonation: 1.3, Volume: 1.1},
	TagSatisfied: {Speed: 0.9, Pitch: -0.05, Intonation: 0.9, Volume: 1.0},
}

// ProsodyFor returns the preset for a tag. Unknown tags read as neutral.
func ProsodyFor(tag EmotionTag) Prosody {
	if p, ok := presets[tag]; ok {
		return p
	}
	return presets[TagNeutral]
}

// minClipDuration floors the estimate so very short lines still give the
// avatar time to emote.
const minClipDuration = 2 * time.Second

// EstimateDuration approximates playback length from text at roughly ten
// characters per second.
func EstimateDuration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * 100 * time.Millisecond
	if d < minClipDuration {
		return minClipDuration
	}
	return d
}
