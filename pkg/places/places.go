// Package places finds nearby restaurants through the Google Places API.
package places

import (
	"context"
	"errors"
	"strings"
)

// Common errors returned by searchers.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("places: API key required")

	// ErrNoLocation is returned when a nearby query lacks coordinates.
	ErrNoLocation = errors.New("places: latitude and longitude required")

	// ErrNoPlaceID is returned when a details lookup lacks a place ID.
	ErrNoPlaceID = errors.New("places: place ID required")
)

// maxResults caps how many restaurants a nearby search returns.
const maxResults = 10

// Status mirrors the Places API response status.
type Status string

const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusOverQueryLimit Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusInvalidRequest Status = "INVALID_REQUEST"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbyQuery describes a nearby restaurant search.
type NearbyQuery struct {
	// Lat and Lng center the search. Both are required; the zero point in
	// the Gulf of Guinea is not a plausible diner location.
	Lat float64
	Lng float64

	// RadiusMeters bounds the search. Zero means 1000.
	RadiusMeters int

	// Keyword optionally narrows results, e.g. "ramen".
	Keyword string

	// Type is the place type, defaulting to "restaurant".
	Type string
}

// Restaurant is one place result.
type Restaurant struct {
	PlaceID      string   `json:"placeId"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Rating       float64  `json:"rating"`
	Types        []string `json:"types,omitempty"`
	Location     *LatLng  `json:"location,omitempty"`
	PriceLevel   int      `json:"priceLevel,omitempty"`
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
	Website      string   `json:"website,omitempty"`
	OpeningHours []string `json:"openingHours,omitempty"`
}

// Category renders the primary place type for display, e.g.
// "meal_takeaway" becomes "meal takeaway".
func (r Restaurant) Category() string {
	if len(r.Types) == 0 {
		return "restaurant"
	}
	return strings.ReplaceAll(r.Types[0], "_", " ")
}

// Searcher finds restaurants.
type Searcher interface {
	// Nearby returns restaurants around a point, best-rated first,
	// capped at ten.
	Nearby(ctx context.Context, q NearbyQuery) ([]Restaurant, error)

	// Details fetches one place by ID.
	Details(ctx context.Context, placeID string) (*Restaurant, error)
}

// Mock implements Searcher for testing via function fields.
type Mock struct {
	NearbyFunc  func(ctx context.Context, q NearbyQuery) ([]Restaurant, error)
	DetailsFunc func(ctx context.Context, placeID string) (*Restaurant, error)
}

func (m *Mock) Nearby(ctx context.Context, q NearbyQuery) ([]Restaurant, error) {
	if m.NearbyFunc != nil {
		return m.NearbyFunc(ctx, q)
	}
	return nil, nil
}

func (m *Mock) Details(ctx context.Context, placeID string) (*Restaurant, error) {
	if m.DetailsFunc != nil {
		return m.DetailsFunc(ctx, placeID)
	}
	return nil, ErrNoPlaceID
}

var _ Searcher = (*Mock)(nil)
