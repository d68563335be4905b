package providers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/providers"
	"github.com/tripsmith/tripsmith/pkg/models"
)

func TestWeatherForecastAggregatesDays(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"list":[
			{"dt_txt":"2026-09-10 09:00:00","main":{"temp_max":24,"temp_min":17},"pop":0.1,"weather":[{"description":"clear sky"}]},
			{"dt_txt":"2026-09-10 15:00:00","main":{"temp_max":29,"temp_min":19},"pop":0.5,"weather":[{"description":"light rain"}]},
			{"dt_txt":"2026-09-11 12:00:00","main":{"temp_max":22,"temp_min":15},"pop":0.0,"weather":[{"description":"clouds"}]}
		]}`)
	}))
	defer srv.Close()

	p := providers.NewWeatherProvider("key", srv.URL, time.Minute, cache.New(nil), srv.Client())
	days, err := p.Forecast(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Forecast() days = %d, want 2", len(days))
	}
	first := days[0]
	if first.Date != "2026-09-10" {
		t.Errorf("days[0].Date = %q, want 2026-09-10", first.Date)
	}
	if first.HighC != 29 || first.LowC != 17 {
		t.Errorf("days[0] temps = %.0f/%.0f, want 29/17", first.HighC, first.LowC)
	}
	if first.PrecipitationChance != 0.5 {
		t.Errorf("days[0].PrecipitationChance = %v, want 0.5", first.PrecipitationChance)
	}

	// Second call is served from cache.
	if _, err := p.Forecast(context.Background(), "Lisbon"); err != nil {
		t.Fatalf("Forecast() cached error: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestWeatherForecastWithoutKey(t *testing.T) {
	p := providers.NewWeatherProvider("", "http://unused", time.Minute, cache.New(nil), http.DefaultClient)
	_, err := p.Forecast(context.Background(), "Lisbon")
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("Forecast() error = %v, want ErrUnavailable", err)
	}
}

func TestPlacesAttractions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[
			{"name":"Castelo de S. Jorge","formatted_address":"R. de Santa Cruz do Castelo","rating":4.6,"types":["tourist_attraction"]},
			{"name":"Oceanario","formatted_address":"Esplanada Dom Carlos I","rating":4.7,"types":["aquarium"]}
		]}`)
	}))
	defer srv.Close()

	p := providers.NewPlacesProvider("key", srv.URL, time.Minute, cache.New(nil), srv.Client())
	got, err := p.Attractions(context.Background(), "Lisbon", []string{"history"})
	if err != nil {
		t.Fatalf("Attractions() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Attractions() len = %d, want 2", len(got))
	}
	if got[0].Name != "Castelo de S. Jorge" || got[0].Score != 4.6 {
		t.Errorf("Attractions()[0] = %+v, want castle with 4.6", got[0])
	}
}

func TestPlacesHotelsMapsPriceLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[
			{"name":"Hotel Avenida","formatted_address":"Av. da Liberdade","rating":4.4,"price_level":3}
		]}`)
	}))
	defer srv.Close()

	p := providers.NewPlacesProvider("key", srv.URL, time.Minute, cache.New(nil), srv.Client())
	got, err := p.Hotels(context.Background(), "Lisbon", models.LodgingPreferences{LodgingType: "hotel"})
	if err != nil {
		t.Fatalf("Hotels() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Hotels() len = %d, want 1", len(got))
	}
	if got[0].PriceLevel != "$$$" {
		t.Errorf("Hotels()[0].PriceLevel = %q, want $$$", got[0].PriceLevel)
	}
}

func TestTravelMinutesFallsBackToDefault(t *testing.T) {
	// No API key and an unreachable OSRM endpoint.
	p := providers.NewTravelProvider("", "http://unused", "http://127.0.0.1:1", time.Minute, cache.New(nil), &http.Client{Timeout: time.Second})
	got := p.Minutes(context.Background(), "Alfama", "Belem")
	if got != providers.DefaultTravelMinutes {
		t.Errorf("Minutes() = %d, want default %d", got, providers.DefaultTravelMinutes)
	}
}

func TestTravelMinutesUsesDistanceMatrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":900}}]}]}`)
	}))
	defer srv.Close()

	p := providers.NewTravelProvider("key", srv.URL, "http://127.0.0.1:1", time.Minute, cache.New(nil), srv.Client())
	got := p.Minutes(context.Background(), "Alfama", "Belem")
	if got != 15 {
		t.Errorf("Minutes() = %d, want 15", got)
	}
}

func TestTravelMinutesSameLocation(t *testing.T) {
	p := providers.NewTravelProvider("", "http://unused", "http://unused", time.Minute, cache.New(nil), http.DefaultClient)
	if got := p.Minutes(context.Background(), "Alfama", "Alfama"); got != 0 {
		t.Errorf("Minutes(same, same) = %d, want 0", got)
	}
}

func TestCurrencyRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"result":0.91}`)
	}))
	defer srv.Close()

	p := providers.NewCurrencyProvider("", srv.URL, time.Minute, cache.New(nil), srv.Client())
	rate, err := p.Rate(context.Background(), "USD", "EUR")
	if err != nil {
		t.Fatalf("Rate() error: %v", err)
	}
	if rate != 0.91 {
		t.Errorf("Rate() = %v, want 0.91", rate)
	}

	same, err := p.Rate(context.Background(), "EUR", "EUR")
	if err != nil || same != 1 {
		t.Errorf("Rate(EUR, EUR) = %v, %v, want 1, nil", same, err)
	}
}
