package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// Voicevox synthesizes speech through a VOICEVOX engine.
//
// Synthesis is a two-step flow: POST /audio_query builds a prosody document
// for the text, then POST /synthesis renders it to WAV. The emotion preset
// is applied by rewriting the query document between the two calls.
type Voicevox struct {
	cfg    *Config
	client *http.Client
	logger *slog.Logger
}

// NewVoicevox creates a VOICEVOX-backed synthesizer.
func NewVoicevox(opts ...Option) (*Voicevox, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Voicevox{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger.With("component", "voice.voicevox"),
	}, nil
}

// Synthesize implements Synthesizer.
func (v *Voicevox) Synthesize(ctx context.Context, req Request) (*Clip, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	speaker := req.Speaker
	if speaker == 0 {
		speaker = v.cfg.Speaker
	}

	query, err := v.audioQuery(ctx, req.Text, speaker)
	if err != nil {
		return nil, err
	}

	applyProsody(query, ProsodyFor(req.Emotion))

	wav, err := v.synthesis(ctx, query, speaker)
	if err != nil {
		return nil, err
	}

	clip := &Clip{
		Audio:      wav,
		DurationMs: int(EstimateDuration(req.Text).Milliseconds()),
		CharCount:  len([]rune(req.Text)),
		Speaker:    speaker,
	}
	v.logger.Debug("synthesized clip",
		"chars", clip.CharCount,
		"bytes", len(wav),
		"emotion", req.Emotion,
		"speaker", speaker,
	)
	return clip, nil
}

// audioQuery asks the engine for a prosody document. The document is kept as
// a generic map so fields this package does not know about survive the round
// trip back into /synthesis.
func (v *Voicevox) audioQuery(ctx context.Context, text string, speaker int) (map[string]any, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(speaker))

	body, err := v.post(ctx, "/audio_query?"+q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}

	var query map[string]any
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, WrapError("voicevox", fmt.Errorf("decoding audio query: %w", err))
	}
	return query, nil
}

// synthesis renders a prosody document to WAV bytes.
func (v *Voicevox) synthesis(ctx context.Context, query map[string]any, speaker int) ([]byte, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, WrapError("voicevox", fmt.Errorf("encoding audio query: %w", err))
	}
	return v.post(ctx, "/synthesis?speaker="+strconv.Itoa(speaker), "application/json", payload)
}

// Speakers implements Synthesizer. The engine groups voices by character
// with per-character styles; the list is flattened to one entry per style.
func (v *Voicevox) Speakers(ctx context.Context) ([]Speaker, error) {
	body, err := v.get(ctx, "/speakers")
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Name   string `json:"name"`
		Styles []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"styles"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, WrapError("voicevox", fmt.Errorf("decoding speakers: %w", err))
	}

	var out []Speaker
	for _, character := range raw {
		for _, style := range character.Styles {
			out = append(out, Speaker{ID: style.ID, Name: character.Name, Style: style.Name})
		}
	}
	return out, nil
}

// Health implements Synthesizer.
func (v *Voicevox) Health(ctx context.Context) error {
	_, err := v.get(ctx, "/version")
	return err
}

// Close implements Synthesizer.
func (v *Voicevox) Close() error {
	return nil
}

func (v *Voicevox) post(ctx context.Context, path, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError("voicevox", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return v.do(req)
}

func (v *Voicevox) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.Endpoint+path, nil)
	if err != nil {
		return nil, WrapError("voicevox", err)
	}
	return v.do(req)
}

func (v *Voicevox) do(req *http.Request) ([]byte, error) {
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, WrapError("voicevox", fmt.Errorf("%w: %v", ErrEngineUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError("voicevox", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 200),
			Provider:   "voicevox",
		}
	}
	return body, nil
}

// applyProsody rewrites the engine's query document in place. Speed,
// intonation and volume scale the engine defaults; pitch is an offset.
func applyProsody(query map[string]any, p Prosody) {
	scale := func(key string, factor float64) {
		if current, ok := query[key].(float64); ok {
			query[key] = current * factor
		}
	}
	scale("speedScale", p.Speed)
	scale("intonationScale", p.Intonation)
	scale("volumeScale", p.Volume)
	if current, ok := query["pitchScale"].(float64); ok {
		query["pitchScale"] = current + p.Pitch
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify Voicevox implements Synthesizer at compile time.
var _ Synthesizer = (*Voicevox)(nil)
