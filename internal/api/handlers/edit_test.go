package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/api"
	"github.com/tripsmith/tripsmith/internal/api/handlers"
	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/pipeline"
	"github.com/tripsmith/tripsmith/internal/providers"
	"github.com/tripsmith/tripsmith/internal/store"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// newEditServer wires a full router over a Gemini backend that answers
// every generation call with the given text, plus a keyless places
// provider so autocomplete serves its demo set.
func newEditServer(t *testing.T, geminiText string) *httptest.Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, geminiText)
	}))
	t.Cleanup(backend.Close)

	client := gemini.NewClient(config.GeminiConfig{
		APIKey:  "test-key",
		Model:   "model-a",
		BaseURL: backend.URL,
		Timeout: 5 * time.Second,
	})

	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	prov := &providers.Clients{
		Places: providers.NewPlacesProvider("", "", time.Minute, cache.New(nil), http.DefaultClient),
	}
	a := agents.New(client, prov, 20)
	orch := pipeline.New(a, s, client, config.PipelineConfig{BufferMinutes: 20})
	h := handlers.New(s, orch, a, "test")

	srv := httptest.NewServer(api.NewRouter(&config.Config{Version: "test"}, h))
	t.Cleanup(srv.Close)
	return srv
}

func blockJSON() string {
	return `{"start_time":"10:00","end_time":"12:00","title":"Castle visit","location":"Lisbon","description":"Hilltop castle","block_type":"activity","travel_time_mins":10,"buffer_mins":10}`
}

func altJSON(title, why string) string {
	return fmt.Sprintf(`{"start_time":"10:00","end_time":"12:00","title":%q,"location":"Lisbon","description":"","block_type":"activity","travel_time_mins":15,"buffer_mins":10,"why":%q}`, title, why)
}

func TestSwapBlockReturnsAlternatives(t *testing.T) {
	// Four candidates from the model; the response is capped at three.
	answer := fmt.Sprintf(`{"alternatives":[%s,%s,%s,%s]}`,
		altJSON("Tile museum", "Quieter than the castle"),
		altJSON("Tram 28 ride", "Classic city crossing"),
		altJSON("Fado lunch show", "Music with the meal"),
		altJSON("Aquarium", "Indoor backup"))
	srv := newEditServer(t, answer)

	resp := postJSON(t, srv.URL+"/api/v1/edit/swap",
		`{"current_block":`+blockJSON()+`,"destination":"Lisbon","day_date":"2026-09-10"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got agents.SwapResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Alternatives) != 3 {
		t.Fatalf("alternatives = %d, want 3", len(got.Alternatives))
	}
	for _, alt := range got.Alternatives {
		if alt.StartTime != "10:00" || alt.EndTime != "12:00" {
			t.Errorf("alternative %q moved time slot to %s-%s", alt.Title, alt.StartTime, alt.EndTime)
		}
		if alt.Why == "" {
			t.Errorf("alternative %q has no why", alt.Title)
		}
	}
	if got.Original.Title != "Castle visit" {
		t.Errorf("original title = %q, want the submitted block", got.Original.Title)
	}
}

func TestSwapBlockRequiresBlock(t *testing.T) {
	srv := newEditServer(t, `{}`)

	resp := postJSON(t, srv.URL+"/api/v1/edit/swap", `{"destination":"Lisbon"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestEditEndpointsWithoutBackendAre503(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	client := gemini.NewClient(config.GeminiConfig{Model: "model-a"}) // no API key
	a := agents.New(client, nil, 20)
	orch := pipeline.New(a, s, client, config.PipelineConfig{BufferMinutes: 20})
	h := handlers.New(s, orch, a, "test")
	srv := httptest.NewServer(api.NewRouter(&config.Config{Version: "test"}, h))
	t.Cleanup(srv.Close)

	cases := []struct {
		path, body string
	}{
		{"/api/v1/edit/swap", `{"current_block":` + blockJSON() + `}`},
		{"/api/v1/edit/regenerate-day", `{"day":{"date":"2026-09-10","schedule":[]}}`},
		{"/api/v1/edit/block", `{"current_block":` + blockJSON() + `,"instruction":"make it shorter"}`},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+tc.path, tc.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("POST %s status = %d, want %d", tc.path, resp.StatusCode, http.StatusServiceUnavailable)
		}
	}
}

func TestRegenerateDayFallsBackToSubmittedDate(t *testing.T) {
	// The model answer omits the date; the submitted day supplies it.
	answer := fmt.Sprintf(`{"title":"Art and food crawl","schedule":[%s]}`,
		blockJSON())
	srv := newEditServer(t, answer)

	resp := postJSON(t, srv.URL+"/api/v1/edit/regenerate-day",
		`{"day":{"date":"2026-09-10","title":"Old town","schedule":[`+blockJSON()+`]},"destination":"Lisbon","weather_summary":"Sunny"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got struct {
		Day models.DayPlan `json:"day"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Day.Date != "2026-09-10" {
		t.Errorf("date = %q, want the submitted date", got.Day.Date)
	}
	if got.Day.Title != "Art and food crawl" {
		t.Errorf("title = %q, want the regenerated theme", got.Day.Title)
	}
	if got.Day.WeatherSummary != "Sunny" {
		t.Errorf("weather summary = %q, want the submitted one", got.Day.WeatherSummary)
	}
	if len(got.Day.Schedule) != 1 {
		t.Errorf("schedule blocks = %d, want 1", len(got.Day.Schedule))
	}
}

func TestRegenerateDayRequiresDay(t *testing.T) {
	srv := newEditServer(t, `{}`)

	resp := postJSON(t, srv.URL+"/api/v1/edit/regenerate-day", `{"destination":"Lisbon"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestEditBlockAppliesInstruction(t *testing.T) {
	answer := `{"start_time":"10:00","end_time":"11:00","title":"Castle visit, short loop","location":"Lisbon","description":"Just the ramparts","block_type":"activity","travel_time_mins":10,"buffer_mins":10}`
	srv := newEditServer(t, answer)

	resp := postJSON(t, srv.URL+"/api/v1/edit/block",
		`{"current_block":`+blockJSON()+`,"destination":"Lisbon","instruction":"make it shorter"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got agents.EditBlockResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Warning != "" {
		t.Fatalf("warning = %q, want none", got.Warning)
	}
	if got.Block.EndTime != "11:00" {
		t.Errorf("edited end time = %q, want 11:00", got.Block.EndTime)
	}
	if got.Original == nil || got.Original.Title != "Castle visit" {
		t.Errorf("original = %+v, want the submitted block", got.Original)
	}
}

func TestEditBlockInvalidAnswerKeepsOriginal(t *testing.T) {
	srv := newEditServer(t, `{"note":"hi"}`)

	resp := postJSON(t, srv.URL+"/api/v1/edit/block",
		`{"current_block":`+blockJSON()+`,"destination":"Lisbon","instruction":"make it shorter"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got agents.EditBlockResult
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Warning == "" {
		t.Fatal("no warning on invalid model answer")
	}
	if got.Block.Title != "Castle visit" {
		t.Errorf("block title = %q, want the untouched original", got.Block.Title)
	}
}

func TestPlacesAutocomplete(t *testing.T) {
	srv := newEditServer(t, `{}`)

	resp, err := http.Get(srv.URL + "/api/v1/places/autocomplete?q=Lis")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got struct {
		Predictions []providers.Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Keyless provider serves the fixed demo set.
	if len(got.Predictions) != 3 {
		t.Fatalf("predictions = %d, want 3", len(got.Predictions))
	}
	if got.Predictions[0].Description != "Lis, USA" {
		t.Errorf("first prediction = %q, want query-derived demo entry", got.Predictions[0].Description)
	}

	short, err := http.Get(srv.URL + "/api/v1/places/autocomplete?q=L")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer short.Body.Close()
	var empty struct {
		Predictions []providers.Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(short.Body).Decode(&empty); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(empty.Predictions) != 0 {
		t.Errorf("short query predictions = %d, want 0", len(empty.Predictions))
	}
}
