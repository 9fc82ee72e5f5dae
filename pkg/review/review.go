// Package review turns a food photo into a narrated review: prose in two
// lengths, the food type, and a timeline of emotion cues for the avatar.
package review

import (
	"context"
	"errors"

	"github.com/tastetalk/go-tastetalk/pkg/emotion"
)

// Common errors returned by reviewers.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("review: API key required")

	// ErrNoImage is returned when the request carries no image bytes.
	ErrNoImage = errors.New("review: image data required")
)

// Style selects the review voice.
type Style string

const (
	StylePassionate Style = "passionate"
	StyleCasual     Style = "casual"
)

// RestaurantContext lets the model mention where the dish came from.
type RestaurantContext struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// Request describes one review generation call.
type Request struct {
	// ImageData is the raw photo bytes.
	ImageData []byte

	// MimeType is the photo's media type, e.g. image/jpeg.
	MimeType string

	// Style selects passionate or casual prose. Empty means casual.
	Style Style

	// Restaurant is optional context woven into the prompt.
	Restaurant *RestaurantContext
}

// Result is a complete generated review.
type Result struct {
	LongReview  string           `json:"longReview"`
	ShortReview string           `json:"shortReview"`
	FoodType    string           `json:"foodType"`
	Emotions    emotion.Timeline `json:"emotionMarkers"`

	// Fallback reports that the model's output was unusable and the
	// built-in review was substituted.
	Fallback bool `json:"fallback,omitempty"`
}

// Reviewer generates reviews from photos.
type Reviewer interface {
	Review(ctx context.Context, req Request) (*Result, error)
}

// Mock implements Reviewer for testing via a function field.
type Mock struct {
	ReviewFunc func(ctx context.Context, req Request) (*Result, error)
}

// Review calls ReviewFunc, or returns the fallback result when unset.
func (m *Mock) Review(ctx context.Context, req Request) (*Result, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, req)
	}
	return fallbackResult(), nil
}

var _ Reviewer = (*Mock)(nil)
