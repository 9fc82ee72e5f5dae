package session

import (
	"time"

	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/review"
)

// Stage names a pipeline step for busy flags and stage-scoped errors.
type Stage string

const (
	StageUpload Stage = "upload"
	StageReview Stage = "review"
	StageVoice  Stage = "voice"
	StagePlaces Stage = "places"
)

// Busy tracks which stages have a request in flight. Each stage is
// independent; a busy voice stage does not block a places lookup.
type Busy struct {
	Upload bool `json:"upload"`
	Review bool `json:"review"`
	Voice  bool `json:"voice"`
	Places bool `json:"places"`
}

// StageError scopes a failure to the stage that produced it. Results from
// other stages stay intact.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Image describes the currently uploaded photo. The raw bytes live on the
// controller, not in snapshots.
type Image struct {
	ID             string  `json:"id"`
	MimeType       string  `json:"mimeType"`
	SizeBytes      int64   `json:"sizeBytes"`
	IsFood         bool    `json:"isFood"`
	FoodConfidence float64 `json:"foodConfidence"`
}

// Audio describes the synthesized narration for the current review.
type Audio struct {
	// URL is a data URL carrying the WAV clip.
	URL        string `json:"url"`
	DurationMs int    `json:"durationMs"`
}

// State is an immutable snapshot of one tasting session. Snapshot returns a
// copy; mutating it never affects the controller.
type State struct {
	SessionID string `json:"sessionId"`

	Image    *Image              `json:"image,omitempty"`
	Review   *review.Result      `json:"review,omitempty"`
	Audio    *Audio              `json:"audio,omitempty"`
	Nearby   []places.Restaurant `json:"nearby,omitempty"`
	Selected *places.Restaurant  `json:"selected,omitempty"`

	Busy      Busy        `json:"busy"`
	LastError *StageError `json:"lastError,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (s State) clone() State {
	out := s
	if s.Image != nil {
		img := *s.Image
		out.Image = &img
	}
	if s.Review != nil {
		rev := *s.Review
		rev.Emotions = append(rev.Emotions[:0:0], s.Review.Emotions...)
		out.Review = &rev
	}
	if s.Audio != nil {
		a := *s.Audio
		out.Audio = &a
	}
	if s.Nearby != nil {
		out.Nearby = append([]places.Restaurant(nil), s.Nearby...)
	}
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}
