package agents

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/providers"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// WeatherResult carries the forecast plus itinerary adjustment advice.
type WeatherResult struct {
	Weather     models.WeatherReport `json:"weather"`
	Adjustments []string             `json:"adjustments"`
}

var weatherSchema = gemini.MustSchemaFor[WeatherResult]("weather")

const weatherPrompt = `You are a travel weather analyst. Given this forecast data, produce a
JSON weather report with an overview, risks, per-day entries, and
itinerary adjustment suggestions.

Destination: {{.Destination}}, {{.StartDate}} to {{.EndDate}}.

Forecast data (may be empty when no provider is available):
{{.Forecast}}`

// Weather fetches the provider forecast where possible and has the model
// summarize it; the stub emits mild fixed values per day.
func (a *Agents) Weather(ctx context.Context, trip *models.TripRequest) Result[WeatherResult] {
	var forecastDays []models.WeatherDay
	if a.Providers != nil && a.Providers.Weather != nil {
		days, err := a.Providers.Weather.Forecast(ctx, trip.Destination)
		if err == nil {
			forecastDays = days
		} else if !errors.Is(err, providers.ErrUnavailable) {
			forecastDays = nil
		}
	}

	if !a.aiEnabled() {
		return stub(weatherStub(trip, forecastDays), IssueGeminiDisabled)
	}

	forecastJSON, _ := json.Marshal(forecastDays)
	prompt, err := gemini.RenderPrompt("weather", weatherPrompt, map[string]any{
		"Destination": trip.Destination,
		"StartDate":   trip.StartDate,
		"EndDate":     trip.EndDate,
		"Forecast":    string(forecastJSON),
	})
	if err != nil {
		return stub(weatherStub(trip, forecastDays), err.Error())
	}

	gen, err := generate[WeatherResult](ctx, a.Gemini, "weather", prompt, weatherSchema)
	if err != nil {
		return stub(weatherStub(trip, forecastDays), fallbackReason(err))
	}
	return gen
}

// weatherStub uses real forecast days when the provider answered, and
// mild fixed values otherwise.
func weatherStub(trip *models.TripRequest, forecastDays []models.WeatherDay) WeatherResult {
	daily := forecastDays
	if len(daily) == 0 {
		start, _, err := trip.Dates()
		if err == nil {
			for i := 0; i < trip.DayCount(); i++ {
				daily = append(daily, models.WeatherDay{
					Date:                start.AddDate(0, 0, i).Format(models.DateLayout),
					HighC:               22,
					LowC:                14,
					PrecipitationChance: 0.2,
					Summary:             "mild, partly cloudy",
				})
			}
		}
	}

	source := "estimated"
	if len(forecastDays) > 0 {
		source = "openweather"
	}

	adjustments := []string{"Pack a light rain jacket."}
	for _, day := range daily {
		if day.PrecipitationChance > 0.5 {
			adjustments = append(adjustments, "High rain chance - have indoor backups.")
			break
		}
	}

	return WeatherResult{
		Weather: models.WeatherReport{
			ForecastSource: source,
			Overview:       "Mild conditions expected for the trip window.",
			Daily:          daily,
		},
		Adjustments: adjustments,
	}
}
