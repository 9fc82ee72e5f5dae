package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tastetalk/go-tastetalk/pkg/places"
	"github.com/tastetalk/go-tastetalk/pkg/review"
	"github.com/tastetalk/go-tastetalk/pkg/session"
	"github.com/tastetalk/go-tastetalk/pkg/voice"
)

// allowedImageTypes are the upload formats the pipeline accepts.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// apiError mirrors the error body shape the frontend expects.
func apiError(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":      kind,
		"message":    message,
		"statusCode": status,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Image file is required")
	}
	if file.Size > s.maxUpload {
		return apiError(c, fiber.StatusRequestEntityTooLarge, "Payload Too Large",
			"Image exceeds the upload limit of "+strconv.FormatInt(s.maxUpload, 10)+" bytes")
	}

	f, err := file.Open()
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Could not read uploaded file")
	}

	// Trust the bytes, not the client's Content-Type header.
	mimeType := http.DetectContentType(data)
	if !allowedImageTypes[mimeType] {
		return apiError(c, fiber.StatusBadRequest, "Bad Request",
			"Unsupported image type "+mimeType+"; use JPEG, PNG, or WebP")
	}

	// TODO: replace the stub with Vision API food-label detection so
	// non-food uploads get rejected instead of reviewed.
	isFood := true
	confidence := 0.85

	img := s.controller.SetImage(data, mimeType, isFood, confidence)

	return c.JSON(fiber.Map{
		"imageId":    img.ID,
		"mimeType":   img.MimeType,
		"sizeBytes":  img.SizeBytes,
		"isFood":     img.IsFood,
		"confidence": img.FoodConfidence,
	})
}

// reviewRequest is the POST /api/review body.
type reviewRequest struct {
	Style string `json:"reviewStyle"`
}

func (s *Server) handleReview(c *fiber.Ctx) error {
	var req reviewRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Malformed request body")
	}

	style := review.StyleCasual
	if req.Style == string(review.StylePassionate) {
		style = review.StylePassionate
	}

	result, err := s.controller.GenerateReview(c.Context(), style)
	switch {
	case errors.Is(err, session.ErrNoImage):
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Upload an image before requesting a review")
	case errors.Is(err, session.ErrStageBusy):
		return apiError(c, fiber.StatusConflict, "Conflict", "A review is already being generated")
	case err != nil:
		return apiError(c, fiber.StatusInternalServerError, "AI Generation Error", "Failed to generate food review")
	}

	// The narration chain may have produced audio; include it when present.
	st := s.controller.Snapshot()
	return c.JSON(fiber.Map{
		"longReview":     result.LongReview,
		"shortReview":    result.ShortReview,
		"foodType":       result.FoodType,
		"emotionMarkers": result.Emotions,
		"fallback":       result.Fallback,
		"audio":          st.Audio,
	})
}

// voiceRequest is the POST /api/voice body.
type voiceRequest struct {
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
}

func (s *Server) handleVoice(c *fiber.Ctx) error {
	var req voiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Malformed request body")
	}
	if req.Text == "" {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Text is required")
	}

	audio, err := s.controller.SynthesizeVoice(c.Context(), req.Text, voice.EmotionTag(req.Emotion))
	switch {
	case errors.Is(err, session.ErrStageBusy):
		return apiError(c, fiber.StatusConflict, "Conflict", "Synthesis already in progress")
	case err != nil:
		return apiError(c, fiber.StatusBadGateway, "Voice Synthesis Error", "Failed to synthesize speech")
	}

	return c.JSON(fiber.Map{
		"audioUrl":   audio.URL,
		"durationMs": audio.DurationMs,
	})
}

func (s *Server) handleSpeakers(c *fiber.Ctx) error {
	speakers, err := s.synth.Speakers(c.Context())
	if err != nil {
		return apiError(c, fiber.StatusBadGateway, "Voice Engine Error", "Failed to list speakers")
	}
	return c.JSON(speakers)
}

func (s *Server) handlePlaces(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Latitude and longitude are required")
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	radius, radErr := strconv.Atoi(c.Query("radius", "1000"))
	if latErr != nil || lngErr != nil || radErr != nil {
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Invalid latitude, longitude, or radius values")
	}

	results, err := s.controller.SearchNearby(c.Context(), places.NearbyQuery{
		Lat:          lat,
		Lng:          lng,
		RadiusMeters: radius,
		Keyword:      c.Query("query"),
		Type:         c.Query("type", "restaurant"),
	})
	switch {
	case errors.Is(err, session.ErrStageBusy):
		return apiError(c, fiber.StatusConflict, "Conflict", "A search is already in progress")
	case errors.Is(err, places.ErrNoLocation):
		return apiError(c, fiber.StatusBadRequest, "Bad Request", "Latitude and longitude are required")
	case err != nil:
		return apiError(c, fiber.StatusBadGateway, "Places Search Error", "Failed to search for nearby restaurants")
	}

	status := places.StatusOK
	if len(results) == 0 {
		status = places.StatusZeroResults
	}
	return c.JSON(fiber.Map{
		"restaurants": results,
		"status":      status,
	})
}

func (s *Server) handlePlaceDetails(c *fiber.Ctx) error {
	placeID := c.Params("placeId")
	detail, err := s.searcher.Details(c.Context(), placeID)
	if err != nil {
		return apiError(c, fiber.StatusBadGateway, "Place Details Error", "Failed to retrieve place details")
	}
	return c.JSON(detail)
}

func (s *Server) handleSelectPlace(c *fiber.Ctx) error {
	selected, err := s.controller.SelectRestaurant(c.Context(), c.Params("placeId"))
	if err != nil {
		return apiError(c, fiber.StatusNotFound, "Not Found", "Restaurant not found")
	}
	return c.JSON(selected)
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.controller.Snapshot())
}

func (s *Server) handleSessionReset(c *fiber.Ctx) error {
	s.controller.Reset()
	return c.JSON(s.controller.Snapshot())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	voiceStatus := "ok"
	if err := s.synth.Health(ctx); err != nil {
		voiceStatus = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"services": fiber.Map{
			"voice": voiceStatus,
		},
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}
