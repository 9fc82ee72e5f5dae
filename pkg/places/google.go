package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Google talks to the Google Places REST API.
type Google struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// GoogleOption configures the Google searcher.
type GoogleOption func(*Google)

// WithBaseURL overrides the API base URL, mostly for tests.
func WithBaseURL(u string) GoogleOption {
	return func(g *Google) { g.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) { g.client = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) GoogleOption {
	return func(g *Google) { g.logger = logger }
}

// NewGoogle creates a Places-API-backed searcher.
func NewGoogle(apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	g := &Google{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default().With("component", "places.google"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Nearby implements Searcher. ZERO_RESULTS is an empty list, not an error;
// every other non-OK status is.
func (g *Google) Nearby(ctx context.Context, q NearbyQuery) ([]Restaurant, error) {
	if q.Lat == 0 && q.Lng == 0 {
		return nil, ErrNoLocation
	}

	radius := q.RadiusMeters
	if radius <= 0 {
		radius = 1000
	}
	placeType := q.Type
	if placeType == "" {
		placeType = "restaurant"
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", q.Lat, q.Lng))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", placeType)
	params.Set("key", g.apiKey)
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var resp nearbyResponse
	if err := g.getJSON(ctx, "/nearbysearch/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != string(StatusOK) && resp.Status != string(StatusZeroResults) {
		return nil, fmt.Errorf("places: API error: %s", resp.Status)
	}

	restaurants := make([]Restaurant, 0, len(resp.Results))
	for _, p := range resp.Results {
		restaurants = append(restaurants, p.toRestaurant())
	}

	sort.SliceStable(restaurants, func(i, j int) bool {
		return restaurants[i].Rating > restaurants[j].Rating
	})
	if len(restaurants) > maxResults {
		restaurants = restaurants[:maxResults]
	}

	g.logger.Info("nearby search completed",
		"results", len(restaurants),
		"status", resp.Status,
	)
	return restaurants, nil
}

// Details implements Searcher.
func (g *Google) Details(ctx context.Context, placeID string) (*Restaurant, error) {
	if placeID == "" {
		return nil, ErrNoPlaceID
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,formatted_address,rating,types,geometry,formatted_phone_number,website,opening_hours,price_level")
	params.Set("key", g.apiKey)

	var resp detailsResponse
	if err := g.getJSON(ctx, "/details/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != string(StatusOK) {
		return nil, fmt.Errorf("places: details API error: %s", resp.Status)
	}

	r := resp.Result.toRestaurant()
	r.PlaceID = placeID
	return &r, nil
}

func (g *Google) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("places: building request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("places: API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("places: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places: API error (status %d)", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("places: failed to decode response: %w", err)
	}
	return nil
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           float64  `json:"rating"`
	Types            []string `json:"types"`
	PriceLevel       int      `json:"price_level"`
	Phone            string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	Geometry         struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
	OpeningHours struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
}

func (p placeResult) toRestaurant() Restaurant {
	address := p.Vicinity
	if address == "" {
		address = p.FormattedAddress
	}
	if address == "" {
		address = "Address not available"
	}
	name := p.Name
	if name == "" {
		name = "Unknown Restaurant"
	}

	r := Restaurant{
		PlaceID:      p.PlaceID,
		Name:         name,
		Address:      address,
		Rating:       p.Rating,
		Types:        p.Types,
		PriceLevel:   p.PriceLevel,
		PhoneNumber:  p.Phone,
		Website:      p.Website,
		OpeningHours: p.OpeningHours.WeekdayText,
	}
	if p.Geometry.Location != (LatLng{}) {
		loc := p.Geometry.Location
		r.Location = &loc
	}
	return r
}

type nearbyResponse struct {
	Status  string        `json:"status"`
	Results []placeResult `json:"results"`
}

type detailsResponse struct {
	Status string      `json:"status"`
	Result placeResult `json:"result"`
}

var _ Searcher = (*Google)(nil)
