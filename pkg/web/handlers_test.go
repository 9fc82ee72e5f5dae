package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tastetalk/go-tastetalk/pkg/emotion"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/review"
	"github.com/tastetalk/go-tastetalk/pkg/session"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image payload")

func testReviewer() *review.Mock {
	return &review.Mock{
		ReviewFunc: func(ctx context.Context, req review.Request) (*review.Result, error) {
			return &review.Result{
				LongReview:  "感動的な美味しさでした。",
				ShortReview: "うますぎる！",
				FoodType:    "うどん",
				Emotions: emotion.Timeline{
					{TimestampMs: 0, Emotion: emotion.Joy, Intensity: 0.9},
				},
			}, nil
		},
	}
}

func testSearcher() *places.Mock {
	return &places.Mock{
		NearbyFunc: func(ctx context.Context, q places.NearbyQuery) ([]places.Restaurant, error) {
			return []places.Restaurant{{PlaceID: "p1", Name: "Udon-ya", Rating: 4.5}}, nil
		},
		DetailsFunc: func(ctx context.Context, placeID string) (*places.Restaurant, error) {
			return &places.Restaurant{PlaceID: placeID, Name: "Udon-ya", Rating: 4.5}, nil
		},
	}
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	synth := voice.NewMock()
	searcher := testSearcher()
	controller := session.NewController(testReviewer(), synth, searcher)
	return NewServer(controller, synth, searcher, opts...)
}

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "food.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(data)
	w.Close()
	return &buf, w.FormDataContentType()
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func uploadImage(t *testing.T, s *Server, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	buf, contentType := multipartImage(t, "image", data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func TestUploadAcceptsPNG(t *testing.T) {
	s := newTestServer(t)
	resp, body := uploadImage(t, s, pngBytes)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["isFood"] != true {
		t.Errorf("isFood = %v", body["isFood"])
	}
	if body["mimeType"] != "image/png" {
		t.Errorf("mimeType = %v", body["mimeType"])
	}
	if body["imageId"] == "" {
		t.Error("imageId missing")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	s := newTestServer(t)
	resp, body := uploadImage(t, s, []byte("just some text, definitely not food"))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%v)", resp.StatusCode, body)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/upload", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReviewRequiresUpload(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/api/review", map[string]string{"reviewStyle": "casual"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestReviewFlow(t *testing.T) {
	s := newTestServer(t)
	uploadImage(t, s, pngBytes)

	resp, body := doJSON(t, s, http.MethodPost, "/api/review", map[string]string{"reviewStyle": "passionate"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["foodType"] != "うどん" {
		t.Errorf("foodType = %v", body["foodType"])
	}
	if body["audio"] == nil {
		t.Error("chained narration missing from response")
	}
	markers, ok := body["emotionMarkers"].([]any)
	if !ok || len(markers) != 1 {
		t.Errorf("emotionMarkers = %v", body["emotionMarkers"])
	}
}

func TestVoiceRequiresText(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/voice", map[string]string{"emotion": "happy"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVoiceSynthesis(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/api/voice", map[string]string{
		"text":    "いただきます",
		"emotion": "happy",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["audioUrl"] == "" {
		t.Error("audioUrl missing")
	}
}

func TestPlacesRequiresCoordinates(t *testing.T) {
	s := newTestServer(t)

	resp, _ := doJSON(t, s, http.MethodGet, "/api/places", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing coords: status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/api/places?lat=abc&lng=139.7", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("garbage lat: status = %d, want 400", resp.StatusCode)
	}
}

func TestPlacesSearch(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/api/places?lat=35.68&lng=139.76&query=udon", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["status"] != "OK" {
		t.Errorf("status field = %v", body["status"])
	}
	restaurants, ok := body["restaurants"].([]any)
	if !ok || len(restaurants) != 1 {
		t.Errorf("restaurants = %v", body["restaurants"])
	}
}

func TestSessionResetClearsState(t *testing.T) {
	s := newTestServer(t)
	uploadImage(t, s, pngBytes)

	resp, body := doJSON(t, s, http.MethodPost, "/api/session/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["image"] != nil {
		t.Errorf("reset kept image: %v", body["image"])
	}
}

func TestHealthReportsVoiceEngine(t *testing.T) {
	synth := voice.WithError(errors.New("engine down"))
	searcher := testSearcher()
	controller := session.NewController(testReviewer(), synth, searcher)
	s := NewServer(controller, synth, searcher)

	resp, body := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	services, _ := body["services"].(map[string]any)
	if services["voice"] != "unreachable" {
		t.Errorf("voice service status = %v", services["voice"])
	}
}

func TestUploadSizeLimit(t *testing.T) {
	s := newTestServer(t, WithMaxUploadSize(16))
	resp, _ := uploadImage(t, s, pngBytes)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}
