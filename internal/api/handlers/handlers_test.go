package handlers_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/api"
	"github.com/tripsmith/tripsmith/internal/api/handlers"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/pipeline"
	"github.com/tripsmith/tripsmith/internal/store"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// newTestServer wires a full router over a memory store and a Gemini
// client pointed at an always-failing backend, so generation completes
// in degraded mode without leaving the process.
func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"backend down"}}`)
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

	a := agents.New(client, nil, 20)
	orch := pipeline.New(a, s, client, config.PipelineConfig{BufferMinutes: 20})
	h := handlers.New(s, orch, a, "test")

	srv := httptest.NewServer(api.NewRouter(&config.Config{Version: "test"}, h))
	t.Cleanup(srv.Close)
	return srv, s
}

func tripBody() string {
	return `{
		"destination": "Lisbon",
		"start_date": "2026-09-10",
		"end_date": "2026-09-12",
		"travelers": {"adults": 2},
		"budget": {"currency": "EUR", "total_budget": 1500}
	}`
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error: %v", url, err)
	}
	return resp
}

func decodeItinerary(t *testing.T, resp *http.Response) models.Itinerary {
	t.Helper()
	defer resp.Body.Close()
	var it models.Itinerary
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		t.Fatalf("decode itinerary: %v", err)
	}
	return it
}

func TestCreateItinerary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/itineraries", tripBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	it := decodeItinerary(t, resp)
	if it.ID == "" {
		t.Error("created itinerary has empty ID")
	}
	if it.Status != models.ItineraryQueued {
		t.Errorf("Status = %q, want %q", it.Status, models.ItineraryQueued)
	}
	if it.Request.Destination != "Lisbon" {
		t.Errorf("Destination = %q, want Lisbon", it.Request.Destination)
	}
}

func TestCreateItineraryRejectsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing destination", `{"start_date":"2026-09-10","end_date":"2026-09-12","travelers":{"adults":1}}`},
		{"end before start", `{"destination":"Lisbon","start_date":"2026-09-12","end_date":"2026-09-10","travelers":{"adults":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/itineraries", tc.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestGenerateItineraryDegraded(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/itineraries/generate", tripBody())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	it := decodeItinerary(t, resp)
	if it.Status != models.ItineraryCompleted {
		t.Errorf("Status = %q, want %q", it.Status, models.ItineraryCompleted)
	}
	if it.Result == nil {
		t.Fatal("Result is nil")
	}
	if len(it.Result.Days) != 3 {
		t.Errorf("len(Days) = %d, want 3", len(it.Result.Days))
	}
}

func TestGenerateItineraryWithoutBackendIs503(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	client := gemini.NewClient(config.GeminiConfig{Model: "model-a"}) // no API key
	a := agents.New(client, nil, 20)
	orch := pipeline.New(a, s, client, config.PipelineConfig{BufferMinutes: 20})
	h := handlers.New(s, orch, a, "test")
	srv := httptest.NewServer(api.NewRouter(&config.Config{Version: "test"}, h))
	t.Cleanup(srv.Close)

	resp := postJSON(t, srv.URL+"/api/v1/itineraries/generate", tripBody())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["code"] != "gemini_error" {
		t.Errorf("code = %q, want gemini_error", body["code"])
	}
}

func TestGetPatchDeleteItinerary(t *testing.T) {
	srv, _ := newTestServer(t)

	created := decodeItinerary(t, postJSON(t, srv.URL+"/api/v1/itineraries", tripBody()))
	url := srv.URL + "/api/v1/itineraries/" + created.ID

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decodeItinerary(t, resp)
	if got.ID != created.ID {
		t.Errorf("GET ID = %q, want %q", got.ID, created.ID)
	}

	req, _ := http.NewRequest(http.MethodPatch, url, strings.NewReader(`{"status":"failed"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH error: %v", err)
	}
	patched := decodeItinerary(t, resp)
	if patched.Status != models.ItineraryFailed {
		t.Errorf("patched Status = %q, want failed", patched.Status)
	}

	req, _ = http.NewRequest(http.MethodDelete, url, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, err = http.Get(url)
	if err != nil {
		t.Fatalf("GET after delete error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestPatchRejectsUnknownStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	created := decodeItinerary(t, postJSON(t, srv.URL+"/api/v1/itineraries", tripBody()))

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/itineraries/"+created.ID,
		strings.NewReader(`{"status":"cooking"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListItineraryTraces(t *testing.T) {
	srv, _ := newTestServer(t)

	it := decodeItinerary(t, postJSON(t, srv.URL+"/api/v1/itineraries/generate", tripBody()))

	resp, err := http.Get(srv.URL + "/api/v1/itineraries/" + it.ID + "/traces")
	if err != nil {
		t.Fatalf("GET traces error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var traces []models.AgentTrace
	if err := json.NewDecoder(resp.Body).Decode(&traces); err != nil {
		t.Fatalf("decode traces: %v", err)
	}
	if len(traces) == 0 {
		t.Fatal("no traces recorded for generated itinerary")
	}
	for _, tr := range traces {
		if tr.ItineraryID != it.ID {
			t.Errorf("trace %s has ItineraryID %q, want %q", tr.ID, tr.ItineraryID, it.ID)
		}
	}
}

func TestTracesForMissingItineraryIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/itineraries/nope/traces")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestExportICS(t *testing.T) {
	srv, _ := newTestServer(t)

	it := decodeItinerary(t, postJSON(t, srv.URL+"/api/v1/itineraries/generate", tripBody()))

	resp, err := http.Get(srv.URL + "/api/v1/itineraries/" + it.ID + "/ics")
	if err != nil {
		t.Fatalf("GET ics error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	buf := new(strings.Builder)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		buf.WriteString(scanner.Text() + "\n")
	}
	cal := buf.String()
	if !strings.Contains(cal, "BEGIN:VCALENDAR") || !strings.Contains(cal, "BEGIN:VEVENT") {
		t.Errorf("calendar missing VCALENDAR/VEVENT markers:\n%s", cal)
	}
}

func TestExportICSWithoutResultIs409(t *testing.T) {
	srv, _ := newTestServer(t)
	it := decodeItinerary(t, postJSON(t, srv.URL+"/api/v1/itineraries", tripBody()))

	resp, err := http.Get(srv.URL + "/api/v1/itineraries/" + it.ID + "/ics")
	if err != nil {
		t.Fatalf("GET ics error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestStreamItinerary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/itineraries/stream", tripBody())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}

	if len(events) < 3 {
		t.Fatalf("got %d events, want at least progress, result and done: %v", len(events), events)
	}
	if events[0] != "progress" {
		t.Errorf("first event = %q, want progress", events[0])
	}
	if events[len(events)-2] != "result" {
		t.Errorf("second-to-last event = %q, want result: %v", events[len(events)-2], events)
	}
	if events[len(events)-1] != "done" {
		t.Errorf("last event = %q, want done: %v", events[len(events)-1], events)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	defer resp.Body.Close()
	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", health["status"])
	}

	resp2, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("GET /version error: %v", err)
	}
	defer resp2.Body.Close()
	var ver map[string]string
	if err := json.NewDecoder(resp2.Body).Decode(&ver); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if ver["version"] != "test" {
		t.Errorf("version = %q, want test", ver["version"])
	}
}
