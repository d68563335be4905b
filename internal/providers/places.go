package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// PlacesProvider searches attractions and lodging via the Google Places
// text search API.
type PlacesProvider struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	cache   *cache.Cache
	client  *http.Client
}

// NewPlacesProvider creates a place search provider.
func NewPlacesProvider(apiKey, baseURL string, ttl time.Duration, c *cache.Cache, client *http.Client) *PlacesProvider {
	return &PlacesProvider{apiKey: apiKey, baseURL: baseURL, ttl: ttl, cache: c, client: client}
}

type placesTextSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Rating           float64  `json:"rating"`
		Types            []string `json:"types"`
		PriceLevel       int      `json:"price_level"`
	} `json:"results"`
}

// Attractions returns points of interest for a destination, biased by
// traveler interests when given.
func (p *PlacesProvider) Attractions(ctx context.Context, destination string, interests []string) ([]models.Attraction, error) {
	query := "top attractions in " + destination
	if len(interests) > 0 {
		query = strings.Join(interests, " ") + " attractions in " + destination
	}

	key := cache.Key("places", "attractions", destination, strings.Join(interests, ","))
	if raw, ok := p.cache.Get(ctx, key); ok {
		var out []models.Attraction
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	resp, err := p.textSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]models.Attraction, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.Attraction{
			Name:       r.Name,
			Address:    r.FormattedAddress,
			Score:      r.Rating,
			Categories: r.Types,
		})
	}

	if raw, err := json.Marshal(out); err == nil {
		p.cache.Put(ctx, key, raw, p.ttl)
	}
	return out, nil
}

// Hotels returns lodging options matching the requested type.
func (p *PlacesProvider) Hotels(ctx context.Context, destination string, prefs models.LodgingPreferences) ([]models.Hotel, error) {
	lodgingType := prefs.LodgingType
	if lodgingType == "" || lodgingType == "any" {
		lodgingType = "hotel"
	}
	query := lodgingType + "s in " + destination

	key := cache.Key("places", "hotels", destination, lodgingType)
	if raw, ok := p.cache.Get(ctx, key); ok {
		var out []models.Hotel
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	resp, err := p.textSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]models.Hotel, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.Hotel{
			Name:       r.Name,
			Address:    r.FormattedAddress,
			Rating:     r.Rating,
			PriceLevel: strings.Repeat("$", r.PriceLevel),
		})
	}

	if raw, err := json.Marshal(out); err == nil {
		p.cache.Put(ctx, key, raw, p.ttl)
	}
	return out, nil
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}

type placesAutocompleteResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		Description string `json:"description"`
		PlaceID     string `json:"place_id"`
	} `json:"predictions"`
}

// Autocomplete suggests city names for a partial query. Queries shorter
// than two characters return nothing; without an API key a fixed demo
// set is returned so the UI stays usable offline.
func (p *PlacesProvider) Autocomplete(ctx context.Context, query string) ([]Prediction, error) {
	if len(query) < 2 {
		return []Prediction{}, nil
	}
	if p.apiKey == "" {
		return []Prediction{
			{Description: query + ", USA", PlaceID: "stub1"},
			{Description: query + " City, Japan", PlaceID: "stub2"},
			{Description: query + " Beach, Australia", PlaceID: "stub3"},
		}, nil
	}

	key := cache.Key("places", "autocomplete", query)
	if raw, ok := p.cache.Get(ctx, key); ok {
		var out []Prediction
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	q := url.Values{}
	q.Set("input", query)
	q.Set("types", "(cities)")
	q.Set("key", p.apiKey)
	reqURL := fmt.Sprintf("%s/autocomplete/json?%s", p.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("places: create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Places API unreachable")
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Places API error response")
		return nil, ErrUnavailable
	}

	var parsed placesAutocompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("places: decode response: %w", err)
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		log.Warn().Str("status", parsed.Status).Msg("Places API rejected query")
		return nil, ErrUnavailable
	}

	out := make([]Prediction, 0, len(parsed.Predictions))
	for i, pr := range parsed.Predictions {
		if i >= 5 {
			break
		}
		out = append(out, Prediction{Description: pr.Description, PlaceID: pr.PlaceID})
	}
	if raw, err := json.Marshal(out); err == nil {
		p.cache.Put(ctx, key, raw, p.ttl)
	}
	return out, nil
}

func (p *PlacesProvider) textSearch(ctx context.Context, query string) (*placesTextSearchResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("key", p.apiKey)
	reqURL := fmt.Sprintf("%s/textsearch/json?%s", p.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("places: create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Places API unreachable")
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Places API error response")
		return nil, ErrUnavailable
	}

	var parsed placesTextSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("places: decode response: %w", err)
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		log.Warn().Str("status", parsed.Status).Msg("Places API rejected query")
		return nil, ErrUnavailable
	}
	return &parsed, nil
}
