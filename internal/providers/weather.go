package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// WeatherProvider fetches daily forecasts from OpenWeather.
type WeatherProvider struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	cache   *cache.Cache
	client  *http.Client
}

// NewWeatherProvider creates a weather provider. baseURL overrides are
// used by tests.
func NewWeatherProvider(apiKey, baseURL string, ttl time.Duration, c *cache.Cache, client *http.Client) *WeatherProvider {
	return &WeatherProvider{apiKey: apiKey, baseURL: baseURL, ttl: ttl, cache: c, client: client}
}

// openWeather 3-hourly forecast entries, aggregated per calendar day.
type openWeatherForecast struct {
	List []struct {
		DtTxt string `json:"dt_txt"` // "2026-09-10 12:00:00"
		Main  struct {
			TempMax float64 `json:"temp_max"`
			TempMin float64 `json:"temp_min"`
		} `json:"main"`
		Pop     float64 `json:"pop"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Forecast returns per-day forecasts for a destination. Results are
// cached; ErrUnavailable means the caller should synthesize a forecast.
func (p *WeatherProvider) Forecast(ctx context.Context, destination string) ([]models.WeatherDay, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}

	key := cache.Key("weather", destination)
	if raw, ok := p.cache.Get(ctx, key); ok {
		var days []models.WeatherDay
		if err := json.Unmarshal(raw, &days); err == nil {
			return days, nil
		}
	}

	q := url.Values{}
	q.Set("q", destination)
	q.Set("appid", p.apiKey)
	q.Set("units", "metric")
	reqURL := fmt.Sprintf("%s/forecast?%s", p.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("destination", destination).Msg("OpenWeather unreachable")
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("OpenWeather error response")
		return nil, ErrUnavailable
	}

	var forecast openWeatherForecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}

	days := aggregateDaily(forecast)
	if raw, err := json.Marshal(days); err == nil {
		p.cache.Put(ctx, key, raw, p.ttl)
	}
	return days, nil
}

// aggregateDaily folds 3-hourly entries into one WeatherDay per date,
// taking max temp, min temp, and the peak precipitation probability.
func aggregateDaily(forecast openWeatherForecast) []models.WeatherDay {
	byDate := map[string]*models.WeatherDay{}
	for _, item := range forecast.List {
		if len(item.DtTxt) < 10 {
			continue
		}
		date := item.DtTxt[:10]
		day, ok := byDate[date]
		if !ok {
			day = &models.WeatherDay{Date: date, HighC: item.Main.TempMax, LowC: item.Main.TempMin}
			byDate[date] = day
		}
		if item.Main.TempMax > day.HighC {
			day.HighC = item.Main.TempMax
		}
		if item.Main.TempMin < day.LowC {
			day.LowC = item.Main.TempMin
		}
		if item.Pop > day.PrecipitationChance {
			day.PrecipitationChance = item.Pop
		}
		if day.Summary == "" && len(item.Weather) > 0 {
			day.Summary = item.Weather[0].Description
		}
	}

	out := make([]models.WeatherDay, 0, len(byDate))
	for _, day := range byDate {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
