package emotion

import "encoding/json"

// RawMarker is an untrusted marker-like record as decoded from an upstream
// payload. Fields are typed as any because the generation model is free to
// emit strings where numbers belong, omit fields, or invent values.
type RawMarker struct {
	Timestamp any `json:"timestamp"`
	Emotion   any `json:"emotion"`
	Intensity any `json:"intensity"`
	Duration  any `json:"duration"`
}

// Fallback returns the built-in timeline used when the upstream payload has
// no usable emotion markers. It guarantees the avatar always has something
// to animate.
func Fallback() Timeline {
	return Timeline{
		{TimestampMs: 0, Emotion: Neutral, Intensity: 0.5},
		{TimestampMs: 3000, Emotion: Joy, Intensity: 0.8},
		{TimestampMs: 7000, Emotion: Satisfied, Intensity: 0.9},
	}
}

// Normalize converts raw upstream records into a well-formed, non-empty
// timeline. It is pure and total: it never fails, and every field of every
// marker is defaulted or clamped into range. An empty or nil input yields
// the Fallback timeline.
func Normalize(raw []RawMarker) Timeline {
	if len(raw) == 0 {
		return Fallback()
	}

	out := make(Timeline, 0, len(raw))
	for _, r := range raw {
		m := Marker{
			TimestampMs: asMillis(r.Timestamp),
			Emotion:     asEmotion(r.Emotion),
			Intensity:   ClampIntensity(r.Intensity),
		}
		if d := asMillis(r.Duration); d > 0 {
			m.DurationMs = d
		}
		out = append(out, m)
	}
	return out
}

// ClampIntensity normalizes an intensity value: missing or non-numeric
// becomes 0.5, everything else clamps into [0, 1].
func ClampIntensity(v any) float64 {
	f, ok := asFloat(v)
	if !ok {
		return 0.5
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// asMillis coerces a value to a non-negative millisecond count, defaulting
// to zero.
func asMillis(v any) int {
	f, ok := asFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

// asEmotion coerces a value to a recognized Emotion, defaulting to Neutral.
func asEmotion(v any) Emotion {
	s, ok := v.(string)
	if !ok {
		return Neutral
	}
	return Parse(s)
}

// asFloat extracts a numeric value from the loosely-typed representations
// encoding/json can produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
