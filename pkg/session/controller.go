// Package session owns the state of one tasting session: the uploaded photo,
// the generated review, the narration clip, and the restaurant context. All
// mutation goes through the Controller; readers get value snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tastetalk/go-tastetalk/pkg/emotion"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/playback"
	"github.com/tastetalk/go-tastetalk/pkg/review"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
)

// Common errors returned by the controller.
var (
	ErrNoImage      = errors.New("session: no image uploaded")
	ErrStageBusy    = errors.New("session: stage already in flight")
	ErrUnknownPlace = errors.New("session: place not in current results")
)

// Controller coordinates the pipeline stages against injected collaborators.
// It is safe for concurrent use.
type Controller struct {
	reviewer review.Reviewer
	synth    voice.Synthesizer
	searcher places.Searcher
	sched    *playback.Scheduler
	logger   *slog.Logger
	onChange func(State)

	mu        sync.Mutex
	state     State
	imageData []byte
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler attaches the playback scheduler so Reset and new uploads
// cancel any run in progress.
func WithScheduler(s *playback.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithOnChange sets a hook invoked with a snapshot after every mutation.
// The hook runs outside the controller lock.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// NewController creates a controller in the initial state.
func NewController(reviewer review.Reviewer, synth voice.Synthesizer, searcher places.Searcher, opts ...Option) *Controller {
	c := &Controller{
		reviewer: reviewer,
		synth:    synth,
		searcher: searcher,
		logger:   slog.Default().With("component", "session"),
		state: State{
			SessionID: uuid.NewString(),
			UpdatedAt: time.Now(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// ImageData returns the raw bytes of the current upload, or nil.
func (c *Controller) ImageData() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.imageData...)
}

// SetImage installs a new upload and invalidates everything derived from the
// previous one: the review, the narration clip, and the selected restaurant.
// Any playback run in progress is cancelled.
func (c *Controller) SetImage(data []byte, mimeType string, isFood bool, confidence float64) Image {
	img := Image{
		ID:             uuid.NewString(),
		MimeType:       mimeType,
		SizeBytes:      int64(len(data)),
		IsFood:         isFood,
		FoodConfidence: confidence,
	}

	c.mu.Lock()
	c.imageData = append([]byte(nil), data...)
	c.state.Image = &img
	c.state.Review = nil
	c.state.Audio = nil
	c.state.Selected = nil
	c.state.LastError = nil
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()

	if c.sched != nil {
		c.sched.Cancel()
	}
	c.logger.Info("image set", "id", img.ID, "mime", mimeType, "bytes", img.SizeBytes)
	c.notify()
	return img
}

// GenerateReview runs the review stage and, on success, chains the voice
// stage. A voice failure is logged and swallowed: the review stands on its
// own and the caller sees no error. Generating a new review invalidates the
// previous narration clip.
func (c *Controller) GenerateReview(ctx context.Context, style review.Style) (*review.Result, error) {
	c.mu.Lock()
	if c.state.Image == nil {
		c.mu.Unlock()
		return nil, ErrNoImage
	}
	if c.state.Busy.Review {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: review", ErrStageBusy)
	}
	c.state.Busy.Review = true
	c.state.UpdatedAt = time.Now()
	req := review.Request{
		ImageData: c.imageData,
		MimeType:  c.state.Image.MimeType,
		Style:     style,
	}
	if sel := c.state.Selected; sel != nil {
		req.Restaurant = &review.RestaurantContext{
			Name:     sel.Name,
			Category: sel.Category(),
			Rating:   sel.Rating,
		}
	}
	c.mu.Unlock()
	c.notify()

	result, err := c.reviewer.Review(ctx, req)

	c.mu.Lock()
	c.state.Busy.Review = false
	if err != nil {
		c.state.LastError = &StageError{Stage: StageReview, Message: err.Error()}
		c.state.UpdatedAt = time.Now()
		c.mu.Unlock()
		c.logger.Error("review failed", "error", err)
		c.notify()
		return nil, err
	}
	c.state.Review = result
	c.state.Audio = nil
	c.state.LastError = nil
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.logger.Info("review generated", "food", result.FoodType, "markers", len(result.Emotions), "fallback", result.Fallback)
	c.notify()

	c.chainVoice(ctx, result)
	return result, nil
}

// chainVoice narrates the full text of a fresh review. Failure here is
// partial success for the session: the review is already stored and must not
// be disturbed. A voice call already in flight keeps its claim on the stage;
// the chain skips rather than starting a second synthesis.
func (c *Controller) chainVoice(ctx context.Context, result *review.Result) {
	c.mu.Lock()
	if c.state.Busy.Voice {
		c.mu.Unlock()
		c.logger.Warn("voice stage busy, skipping chained narration")
		return
	}
	c.state.Busy.Voice = true
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.notify()

	clip, err := c.synth.Synthesize(ctx, voice.Request{
		Text:    result.LongReview,
		Emotion: dominantTag(result.Emotions),
	})

	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.notify()
	}()
	c.state.Busy.Voice = false
	c.state.UpdatedAt = time.Now()
	if err != nil {
		c.logger.Warn("voice synthesis failed, review stands without narration", "error", err)
		return
	}
	c.state.Audio = &Audio{URL: clip.DataURL(), DurationMs: clip.DurationMs}
}

// SynthesizeVoice runs the voice stage for arbitrary text.
func (c *Controller) SynthesizeVoice(ctx context.Context, text string, tag voice.EmotionTag) (*Audio, error) {
	c.mu.Lock()
	if c.state.Busy.Voice {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: voice", ErrStageBusy)
	}
	c.state.Busy.Voice = true
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.notify()

	clip, err := c.synth.Synthesize(ctx, voice.Request{Text: text, Emotion: tag})

	c.mu.Lock()
	c.state.Busy.Voice = false
	if err != nil {
		c.state.LastError = &StageError{Stage: StageVoice, Message: err.Error()}
		c.state.UpdatedAt = time.Now()
		c.mu.Unlock()
		c.notify()
		return nil, err
	}
	audio := &Audio{URL: clip.DataURL(), DurationMs: clip.DurationMs}
	c.state.Audio = audio
	c.state.LastError = nil
	c.state.UpdatedAt = time.Now()
	out := *audio
	c.mu.Unlock()
	c.notify()
	return &out, nil
}

// SearchNearby runs the places stage and replaces the nearby list.
func (c *Controller) SearchNearby(ctx context.Context, q places.NearbyQuery) ([]places.Restaurant, error) {
	c.mu.Lock()
	if c.state.Busy.Places {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: places", ErrStageBusy)
	}
	c.state.Busy.Places = true
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.notify()

	results, err := c.searcher.Nearby(ctx, q)

	c.mu.Lock()
	c.state.Busy.Places = false
	if err != nil {
		c.state.LastError = &StageError{Stage: StagePlaces, Message: err.Error()}
		c.state.UpdatedAt = time.Now()
		c.mu.Unlock()
		c.notify()
		return nil, err
	}
	c.state.Nearby = results
	c.state.LastError = nil
	c.state.UpdatedAt = time.Now()
	out := append([]places.Restaurant(nil), results...)
	c.mu.Unlock()
	c.notify()
	return out, nil
}

// SelectRestaurant marks a restaurant from the current nearby list as the
// review context. Unknown IDs fall back to a details lookup.
func (c *Controller) SelectRestaurant(ctx context.Context, placeID string) (*places.Restaurant, error) {
	c.mu.Lock()
	for i := range c.state.Nearby {
		if c.state.Nearby[i].PlaceID == placeID {
			sel := c.state.Nearby[i]
			c.state.Selected = &sel
			c.state.UpdatedAt = time.Now()
			c.mu.Unlock()
			c.notify()
			return &sel, nil
		}
	}
	c.mu.Unlock()

	if c.searcher == nil {
		return nil, ErrUnknownPlace
	}
	detail, err := c.searcher.Details(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlace, placeID)
	}

	c.mu.Lock()
	sel := *detail
	c.state.Selected = &sel
	c.state.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.notify()
	return &sel, nil
}

// Reset returns the session to its initial state under a fresh ID and
// cancels any playback run in progress.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.imageData = nil
	c.state = State{
		SessionID: uuid.NewString(),
		UpdatedAt: time.Now(),
	}
	c.mu.Unlock()

	if c.sched != nil {
		c.sched.Cancel()
	}
	c.logger.Info("session reset")
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

// dominantTag picks the narration tone from the strongest timeline cue.
func dominantTag(tl emotion.Timeline) voice.EmotionTag {
	best := emotion.Neutral
	bestIntensity := -1.0
	for _, m := range tl {
		if m.Intensity > bestIntensity {
			best = m.Emotion
			bestIntensity = m.Intensity
		}
	}
	switch best {
	case emotion.Joy:
		return voice.TagHappy
	case emotion.Surprised:
		return voice.TagExcited
	case emotion.Satisfied:
		return voice.TagSatisfied
	default:
		return voice.TagNeutral
	}
}
