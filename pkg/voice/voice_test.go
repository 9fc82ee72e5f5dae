package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestProsodyPresets(t *testing.T) {
	tests := []struct {
		tag  EmotionTag
		want Prosody
	}{
		{TagNeutral, Prosody{1.0, 0.0, 1.0, 1.0}},
		{TagHappy, Prosody{1.1, 0.1, 1.2, 1.0}},
		{TagExcited, Prosody{1.2, 0.15, 1.3, 1.1}},
		{TagSatisfied, Prosody{0.9, -0.05, 0.9, 1.0}},
		{EmotionTag("angry"), Prosody{1.0, 0.0, 1.0, 1.0}}, // unknown reads neutral
	}
	for _, tt := range tests {
		if got := ProsodyFor(tt.tag); got != tt.want {
			t.Errorf("ProsodyFor(%q) = %+v, want %+v", tt.tag, got, tt.want)
		}
	}
}

func TestEstimateDuration(t *testing.T) {
	if got := EstimateDuration("short"); got != 2*time.Second {
		t.Errorf("short text floored to %v, want 2s", got)
	}
	long := strings.Repeat("あ", 50)
	if got := EstimateDuration(long); got != 5*time.Second {
		t.Errorf("50 runes = %v, want 5s", got)
	}
}

func TestApplyProsody(t *testing.T) {
	query := map[string]any{
		"speedScale":         1.0,
		"pitchScale":         0.0,
		"intonationScale":    1.0,
		"volumeScale":        1.0,
		"outputSamplingRate": 24000.0,
	}
	applyProsody(query, ProsodyFor(TagExcited))

	if query["speedScale"] != 1.2 || query["pitchScale"] != 0.15 {
		t.Errorf("excited prosody not applied: %+v", query)
	}
	if query["outputSamplingRate"] != 24000.0 {
		t.Error("unrelated query fields disturbed")
	}
}

func TestVoicevoxTwoStepFlow(t *testing.T) {
	wav := []byte("RIFF....WAVEfake")
	var gotSynthesisQuery map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/audio_query"):
			if r.URL.Query().Get("speaker") != "4" {
				t.Errorf("audio_query speaker = %q, want 4", r.URL.Query().Get("speaker"))
			}
			json.NewEncoder(w).Encode(map[string]any{
				"speedScale": 1.0, "pitchScale": 0.0,
				"intonationScale": 1.0, "volumeScale": 1.0,
			})
		case strings.HasPrefix(r.URL.Path, "/synthesis"):
			json.NewDecoder(r.Body).Decode(&gotSynthesisQuery)
			w.Write(wav)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	synth, err := NewVoicevox(WithEndpoint(srv.URL), WithSpeaker(4))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer synth.Close()

	clip, err := synth.Synthesize(context.Background(), Request{
		Text:    "このパスタは絶品です",
		Emotion: TagHappy,
	})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if string(clip.Audio) != string(wav) {
		t.Error("clip audio does not match engine output")
	}
	if clip.Speaker != 4 {
		t.Errorf("clip speaker = %d, want 4", clip.Speaker)
	}
	if gotSynthesisQuery["speedScale"] != 1.1 {
		t.Errorf("happy speed not applied to synthesis body: %v", gotSynthesisQuery["speedScale"])
	}
	if !strings.HasPrefix(clip.DataURL(), "data:audio/wav;base64,") {
		t.Errorf("data URL prefix wrong: %.40s", clip.DataURL())
	}
}

func TestVoicevoxEmptyText(t *testing.T) {
	synth, _ := NewVoicevox(WithEndpoint("http://localhost:1"))
	if _, err := synth.Synthesize(context.Background(), Request{}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestVoicevoxEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	synth, _ := NewVoicevox(WithEndpoint(srv.URL))
	_, err := synth.Synthesize(context.Background(), Request{Text: "test"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apiErr.StatusCode)
	}
	if !apiErr.IsRetryable() {
		t.Error("5xx should be retryable")
	}
}

func TestVoicevoxSpeakersFlatten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"四国めたん","styles":[{"id":2,"name":"ノーマル"},{"id":4,"name":"セクシー"}]}]`))
	}))
	defer srv.Close()

	synth, _ := NewVoicevox(WithEndpoint(srv.URL))
	speakers, err := synth.Speakers(context.Background())
	if err != nil {
		t.Fatalf("speakers: %v", err)
	}
	if len(speakers) != 2 {
		t.Fatalf("got %d speakers, want 2", len(speakers))
	}
	if speakers[1].ID != 4 || speakers[1].Name != "四国めたん" {
		t.Errorf("unexpected speaker %+v", speakers[1])
	}
}

func TestMissingEndpoint(t *testing.T) {
	if _, err := NewVoicevox(WithEndpoint("")); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("err = %v, want ErrNoEndpoint", err)
	}
}
