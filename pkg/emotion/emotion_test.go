package emotion

import (
	"testing"
	"time"
)

func TestClampIntensity(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"below range", float64(-5), 0},
		{"zero", float64(0), 0},
		{"mid", 0.5, 0.5},
		{"one", float64(1), 1},
		{"above range", float64(7), 1},
		{"missing", nil, 0.5},
		{"non-numeric", "loud", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampIntensity(tt.in); got != tt.want {
				t.Errorf("ClampIntensity(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseUnrecognizedEmotions(t *testing.T) {
	for _, s := range []string{"angry", "", "42", "JOY", "excited"} {
		if got := Parse(s); got != Neutral {
			t.Errorf("Parse(%q) = %q, want neutral", s, got)
		}
	}

	for _, s := range []string{"joy", "surprised", "satisfied", "neutral"} {
		if got := Parse(s); got != Emotion(s) {
			t.Errorf("Parse(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestNormalizeFallback(t *testing.T) {
	want := Timeline{
		{TimestampMs: 0, Emotion: Neutral, Intensity: 0.5},
		{TimestampMs: 3000, Emotion: Joy, Intensity: 0.8},
		{TimestampMs: 7000, Emotion: Satisfied, Intensity: 0.9},
	}

	for _, in := range [][]RawMarker{nil, {}} {
		got := Normalize(in)
		if len(got) != len(want) {
			t.Fatalf("expected %d fallback markers, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("fallback[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}

func TestNormalizeGarbageFields(t *testing.T) {
	raw := []RawMarker{
		{Timestamp: "soon", Emotion: 42, Intensity: "high"},
		{Timestamp: float64(-100), Emotion: "angry", Intensity: float64(3)},
		{Timestamp: float64(2500), Emotion: "joy", Intensity: 0.8, Duration: float64(1500)},
	}

	got := Normalize(raw)
	if len(got) != 3 {
		t.Fatalf("expected 3 markers, got %d", len(got))
	}

	if got[0] != (Marker{TimestampMs: 0, Emotion: Neutral, Intensity: 0.5}) {
		t.Errorf("garbage record normalized to %+v", got[0])
	}
	if got[1] != (Marker{TimestampMs: 0, Emotion: Neutral, Intensity: 1}) {
		t.Errorf("negative/out-of-range record normalized to %+v", got[1])
	}
	if got[2] != (Marker{TimestampMs: 2500, Emotion: Joy, Intensity: 0.8, DurationMs: 1500}) {
		t.Errorf("valid record altered: %+v", got[2])
	}
}

func TestMarkerHold(t *testing.T) {
	m := Marker{TimestampMs: 1000, Emotion: Joy, Intensity: 1}
	if m.Hold() != DefaultHold {
		t.Errorf("expected default hold %v, got %v", DefaultHold, m.Hold())
	}

	m.DurationMs = 500
	if m.Hold() != 500*time.Millisecond {
		t.Errorf("expected 500ms hold, got %v", m.Hold())
	}
}

func TestTimelineEnd(t *testing.T) {
	tl := Timeline{
		{TimestampMs: 0, Emotion: Neutral, Intensity: 0.5},
		{TimestampMs: 8000, Emotion: Satisfied, Intensity: 0.9},
	}
	if end := tl.End(); end != 10*time.Second {
		t.Errorf("expected timeline end 10s, got %v", end)
	}
}
