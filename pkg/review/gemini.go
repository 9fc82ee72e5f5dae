package review

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tastetalk/go-tastetalk/pkg/emotion"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini generates reviews with a Gemini vision model over plain REST.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// GeminiOption configures the Gemini reviewer.
type GeminiOption func(*Gemini)

// WithModel overrides the default model.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithBaseURL overrides the API base URL, mostly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = logger }
}

// NewGemini creates a Gemini-backed reviewer.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	g := &Gemini{
		apiKey:  apiKey,
		model:   "gemini-2.0-flash",
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default().With("component", "review.gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Review implements Reviewer. A transport or API failure is an error; a
// response the model garbled is not. Malformed model output degrades to the
// built-in fallback review so the session always has something to narrate.
func (g *Gemini) Review(ctx context.Context, req Request) (*Result, error) {
	if len(req.ImageData) == 0 {
		return nil, ErrNoImage
	}
	mime := req.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": buildPrompt(req.Style, req.Restaurant)},
					{"inline_data": map[string]string{
						"mime_type": mime,
						"data":      base64.StdEncoding.EncodeToString(req.ImageData),
					}},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.7,
			"maxOutputTokens": 1000,
		},
	}

	jsonData, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("review: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("review: API request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("review: Gemini API error (status %d): %s", resp.StatusCode, truncate(string(bodyBytes), 200))
	}

	var result geminiResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return nil, fmt.Errorf("review: failed to decode response: %w (body: %s)", err, truncate(string(bodyBytes), 200))
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("review: Gemini error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("review: no response from Gemini (raw: %s)", truncate(string(bodyBytes), 300))
	}

	parsed := ParseModelOutput(result.Candidates[0].Content.Parts[0].Text)
	if parsed.Fallback {
		g.logger.Warn("model output unparseable, using fallback review")
	}
	g.logger.Info("review generated",
		"food", parsed.FoodType,
		"long_chars", len([]rune(parsed.LongReview)),
		"markers", len(parsed.Emotions),
	)
	return parsed, nil
}

// buildPrompt asks for Japanese review prose plus timed emotion cues in a
// strict JSON shape.
func buildPrompt(style Style, rc *RestaurantContext) string {
	stylePrompt := "Write a casual and friendly food review"
	if style == StylePassionate {
		stylePrompt = "Write an extremely passionate and enthusiastic food review"
	}

	context := ""
	if rc != nil {
		context = fmt.Sprintf("This food is from %s (%s), rated %.1f/5 stars.", rc.Name, rc.Category, rc.Rating)
	}

	return fmt.Sprintf(`%s in Japanese for this food image. %s

Please provide:
1. A long passionate review (300-500 characters) expressing excitement about the food
2. A short version for social media (under 140 characters)
3. The type of food shown in the image
4. Emotion markers for character expressions

Format your response as JSON with these fields:
- longReview: string (the full passionate review)
- shortReview: string (social media version)
- foodType: string (what food is shown)
- emotions: array of objects with {timestamp: number, emotion: string, intensity: number}

Emotions should be: 'joy', 'surprised', 'satisfied', or 'neutral'
Timestamps should be in milliseconds from 0-10000 (10 seconds)
Intensity should be 0.0-1.0

Make it sound like a real food enthusiast reviewing delicious food!`, stylePrompt, context)
}

// ParseModelOutput extracts a Result from model text. The model wraps its
// JSON in prose or code fences more often than not, so the parser takes the
// outermost brace pair and ignores everything around it. Unusable output
// yields the fallback result, never an error.
func ParseModelOutput(text string) *Result {
	raw := extractJSON(text)
	if raw == "" {
		return fallbackResult()
	}

	var parsed modelPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fallbackResult()
	}

	out := &Result{
		LongReview:  parsed.LongReview,
		ShortReview: parsed.ShortReview,
		FoodType:    parsed.FoodType,
		Emotions:    normalizeEmotions(parsed.Emotions),
	}
	if out.LongReview == "" {
		out.LongReview = "美味しそうな料理ですね！"
	}
	if out.ShortReview == "" {
		out.ShortReview = "美味しそう！"
	}
	if out.FoodType == "" {
		out.FoodType = "料理"
	}
	return out
}

// extractJSON returns the outermost {...} span of text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// fallbackResult is the built-in review used when the model output is
// unusable end to end.
func fallbackResult() *Result {
	return &Result{
		LongReview:  "この料理は本当に素晴らしいです！見た目からして美味しそうで、きっと味も最高だと思います。食べるのが楽しみですね！",
		ShortReview: "この料理、めちゃくちゃ美味しそう！🍴✨",
		FoodType:    "美味しい料理",
		Emotions:    fallbackEmotions(),
		Fallback:    true,
	}
}

func fallbackEmotions() emotion.Timeline {
	return emotion.Timeline{
		{TimestampMs: 0, Emotion: emotion.Neutral, Intensity: 0.5},
		{TimestampMs: 2000, Emotion: emotion.Surprised, Intensity: 0.8},
		{TimestampMs: 5000, Emotion: emotion.Joy, Intensity: 1.0},
		{TimestampMs: 8000, Emotion: emotion.Satisfied, Intensity: 0.9},
	}
}

// normalizeEmotions runs the model's loosely-typed markers through the
// shared ingestion path.
func normalizeEmotions(raw []emotion.RawMarker) emotion.Timeline {
	return emotion.Normalize(raw)
}

type modelPayload struct {
	LongReview  string              `json:"longReview"`
	ShortReview string              `json:"shortReview"`
	FoodType    string              `json:"foodType"`
	Emotions    []emotion.RawMarker `json:"emotions"`
}

// geminiResponse is the response structure from the Gemini API.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// truncate shortens a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

var _ Reviewer = (*Gemini)(nil)
