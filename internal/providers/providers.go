// Package providers wraps the external data services the pipeline
// enriches itineraries with: weather forecasts, place search, travel
// times, and currency rates. Every provider reads through the shared
// cache and degrades cleanly when its API key is absent.
package providers

import (
	"errors"
	"net/http"
	"time"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/config"
)

// ErrUnavailable is returned when a provider has no credentials or its
// upstream cannot be reached. Callers fall back to model-generated or
// canned data.
var ErrUnavailable = errors.New("provider unavailable")

// Clients bundles all configured providers for injection.
type Clients struct {
	Weather  *WeatherProvider
	Places   *PlacesProvider
	Travel   *TravelProvider
	Currency *CurrencyProvider
}

// New builds the provider set from configuration.
func New(cfg config.ProviderConfig, c *cache.Cache) *Clients {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return &Clients{
		Weather:  NewWeatherProvider(cfg.OpenWeatherKey, "https://api.openweathermap.org/data/2.5", cfg.WeatherTTL, c, httpClient),
		Places:   NewPlacesProvider(cfg.GooglePlacesKey, "https://maps.googleapis.com/maps/api/place", cfg.PlacesTTL, c, httpClient),
		Travel:   NewTravelProvider(cfg.DistanceMatrixKey, "https://maps.googleapis.com/maps/api/distancematrix", "https://router.project-osrm.org", cfg.TravelTTL, c, httpClient),
		Currency: NewCurrencyProvider(cfg.CurrencyKey, "https://api.exchangerate.host", cfg.CurrencyTTL, c, httpClient),
	}
}
