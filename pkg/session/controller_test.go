package session

import (
	"context"
	"errors"
	"testing"

	"github.com/tastetalk/go-tastetalk/pkg/avatar"
	"github.com/tastetalk/go-tastetalk/pkg/emotion"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/playback"
	"github.com/tastetalk/go-tastetalk/pkg/review"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
)

func okReviewer() *review.Mock {
	return &review.Mock{
		ReviewFunc: func(ctx context.Context, req review.Request) (*review.Result, error) {
			return &review.Result{
				LongReview:  "最高の一皿でした。",
				ShortReview: "最高！",
				FoodType:    "ラーメン",
				Emotions: emotion.Timeline{
					{TimestampMs: 0, Emotion: emotion.Joy, Intensity: 1.0},
				},
			}, nil
		},
	}
}

func newTestController(rev review.Reviewer, synth voice.Synthesizer, search places.Searcher) *Controller {
	return NewController(rev, synth, search)
}

func TestCascadeInvalidationOnNewImage(t *testing.T) {
	c := newTestController(okReviewer(), voice.NewMock(), &places.Mock{})

	c.SetImage([]byte("photo-1"), "image/jpeg", true, 0.85)
	if _, err := c.GenerateReview(context.Background(), review.StyleCasual); err != nil {
		t.Fatalf("review: %v", err)
	}

	c.mu.Lock()
	c.state.Nearby = []places.Restaurant{{PlaceID: "p1", Name: "Shop"}}
	c.mu.Unlock()
	if _, err := c.SelectRestaurant(context.Background(), "p1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	before := c.Snapshot()
	if before.Review == nil || before.Audio == nil || before.Selected == nil {
		t.Fatalf("precondition not met: %+v", before)
	}

	c.SetImage([]byte("photo-2"), "image/png", true, 0.85)

	after := c.Snapshot()
	if after.Review != nil {
		t.Error("new image kept stale review")
	}
	if after.Audio != nil {
		t.Error("new image kept stale audio")
	}
	if after.Selected != nil {
		t.Error("new image kept stale restaurant selection")
	}
	if after.Image == nil || after.Image.MimeType != "image/png" {
		t.Errorf("new image not installed: %+v", after.Image)
	}
	if len(after.Nearby) != 1 {
		t.Error("nearby list should survive a new upload")
	}
}

func TestPartialSuccessVoiceFailure(t *testing.T) {
	synthErr := errors.New("engine down")
	c := newTestController(okReviewer(), voice.WithError(synthErr), &places.Mock{})

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)
	result, err := c.GenerateReview(context.Background(), review.StylePassionate)
	if err != nil {
		t.Fatalf("review must succeed despite voice failure: %v", err)
	}
	if result == nil || result.FoodType != "ラーメン" {
		t.Fatalf("unexpected review %+v", result)
	}

	st := c.Snapshot()
	if st.Review == nil {
		t.Error("review not stored")
	}
	if st.Audio != nil {
		t.Error("failed synthesis left audio set")
	}
	if st.LastError != nil {
		t.Errorf("swallowed voice failure surfaced as stage error: %+v", st.LastError)
	}
	if st.Busy.Voice || st.Busy.Review {
		t.Errorf("busy flags stuck: %+v", st.Busy)
	}
}

func TestReviewChainsVoice(t *testing.T) {
	synth := voice.NewMock()
	c := newTestController(okReviewer(), synth, &places.Mock{})

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)
	if _, err := c.GenerateReview(context.Background(), review.StyleCasual); err != nil {
		t.Fatalf("review: %v", err)
	}

	calls := synth.Calls()
	if len(calls) != 1 {
		t.Fatalf("synthesize called %d times, want 1", len(calls))
	}
	if calls[0].Text != "最高の一皿でした。" {
		t.Errorf("narrated %q, want the full review text", calls[0].Text)
	}
	if calls[0].Emotion != voice.TagHappy {
		t.Errorf("tag = %q, want happy for dominant joy", calls[0].Emotion)
	}

	if st := c.Snapshot(); st.Audio == nil || st.Audio.URL == "" {
		t.Error("chained synthesis did not store audio")
	}
}

func TestChainSkipsWhenVoiceBusy(t *testing.T) {
	synth := voice.NewMock()
	c := newTestController(okReviewer(), synth, &places.Mock{})

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)

	// A manual synthesis is in flight; the chained narration must not start
	// a second one or clobber the stage's claim.
	c.mu.Lock()
	c.state.Busy.Voice = true
	c.mu.Unlock()

	if _, err := c.GenerateReview(context.Background(), review.StyleCasual); err != nil {
		t.Fatalf("review: %v", err)
	}

	if n := synth.CallCount("Synthesize"); n != 0 {
		t.Errorf("chained narration ran %d syntheses while the stage was busy", n)
	}
	st := c.Snapshot()
	if !st.Busy.Voice {
		t.Error("skipped chain cleared the in-flight call's busy flag")
	}
	if st.Audio != nil {
		t.Error("skipped chain stored audio")
	}
}

func TestReviewFailureScopedToStage(t *testing.T) {
	revErr := errors.New("model unavailable")
	rev := &review.Mock{
		ReviewFunc: func(ctx context.Context, req review.Request) (*review.Result, error) {
			return nil, revErr
		},
	}
	synth := voice.NewMock()
	c := newTestController(rev, synth, &places.Mock{})

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)
	if _, err := c.GenerateReview(context.Background(), review.StyleCasual); !errors.Is(err, revErr) {
		t.Fatalf("err = %v, want model error", err)
	}

	st := c.Snapshot()
	if st.LastError == nil || st.LastError.Stage != StageReview {
		t.Errorf("stage error = %+v, want review-scoped", st.LastError)
	}
	if st.Image == nil {
		t.Error("review failure disturbed the uploaded image")
	}
	if synth.CallCount("Synthesize") != 0 {
		t.Error("voice chained after review failure")
	}
}

func TestReviewRequiresImage(t *testing.T) {
	c := newTestController(okReviewer(), voice.NewMock(), &places.Mock{})
	if _, err := c.GenerateReview(context.Background(), review.StyleCasual); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
}

func TestResetCancelsPlayback(t *testing.T) {
	sched := playback.NewScheduler(avatar.NewMemoryTarget())
	c := NewController(okReviewer(), voice.NewMock(), &places.Mock{}, WithScheduler(sched))

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)
	genBefore := sched.Generation()

	oldID := c.Snapshot().SessionID
	c.Reset()

	st := c.Snapshot()
	if st.Image != nil || st.Review != nil || st.Audio != nil || st.Selected != nil || st.Nearby != nil {
		t.Errorf("reset left state behind: %+v", st)
	}
	if st.SessionID == oldID {
		t.Error("reset kept the old session ID")
	}
	if sched.Generation() <= genBefore {
		t.Error("reset did not cancel the scheduler")
	}
}

func TestSelectRestaurantFallsBackToDetails(t *testing.T) {
	search := &places.Mock{
		DetailsFunc: func(ctx context.Context, placeID string) (*places.Restaurant, error) {
			return &places.Restaurant{PlaceID: placeID, Name: "Hidden Gem", Rating: 4.9}, nil
		},
	}
	c := newTestController(okReviewer(), voice.NewMock(), search)

	got, err := c.SelectRestaurant(context.Background(), "unlisted")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Name != "Hidden Gem" {
		t.Errorf("selected %+v", got)
	}
	if st := c.Snapshot(); st.Selected == nil || st.Selected.PlaceID != "unlisted" {
		t.Errorf("selection not stored: %+v", st.Selected)
	}
}

func TestOnChangeFiresPerMutation(t *testing.T) {
	var snapshots []State
	c := NewController(okReviewer(), voice.NewMock(), &places.Mock{},
		WithOnChange(func(s State) { snapshots = append(snapshots, s) }))

	c.SetImage([]byte("photo"), "image/jpeg", true, 0.85)
	if len(snapshots) == 0 {
		t.Fatal("onChange never fired")
	}
	last := snapshots[len(snapshots)-1]
	if last.Image == nil {
		t.Error("snapshot missing the mutation that triggered it")
	}
}
