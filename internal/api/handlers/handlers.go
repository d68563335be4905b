// Package handlers implements the HTTP handlers for the TripSmith API.
// All handlers use the Store interface, so the same code serves the
// in-memory store (local dev, tests) and PostgreSQL (production).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/booking"
	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/pipeline"
	"github.com/tripsmith/tripsmith/internal/store"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Agents       *agents.Agents
	Version      string
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, orch *pipeline.Orchestrator, ag *agents.Agents, version string) *Handlers {
	return &Handlers{
		Store:        s,
		Orchestrator: orch,
		Agents:       ag,
		Version:      version,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Itinerary Handlers ───────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListItineraries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := h.Store.ListItineraries(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.Itinerary{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	it, ok := h.newItinerary(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, it)
}

// GenerateItinerary creates an itinerary record and runs the full
// pipeline before responding. Clients that want progress updates should
// use StreamItinerary instead.
func (h *Handlers) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	it, ok := h.newItinerary(w, r)
	if !ok {
		return
	}

	if _, err := h.Orchestrator.Generate(r.Context(), it, nil); err != nil {
		status, code := generationStatus(err)
		respondErrorCode(w, status, code, err.Error())
		return
	}

	stored, err := h.Store.GetItinerary(r.Context(), it.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func (h *Handlers) GetItinerary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itineraryID")
	it, err := h.Store.GetItinerary(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, it)
}

// itineraryPatch is the accepted PATCH body. Fields left null are
// untouched.
type itineraryPatch struct {
	Status *models.ItineraryStatus   `json:"status"`
	Result *models.ItineraryResponse `json:"result"`
}

func (h *Handlers) PatchItinerary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itineraryID")

	var patch itineraryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	it, err := h.Store.GetItinerary(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if patch.Status != nil {
		switch *patch.Status {
		case models.ItineraryPending, models.ItineraryQueued, models.ItineraryProcessing,
			models.ItineraryCompleted, models.ItineraryFailed:
			it.Status = *patch.Status
		default:
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", *patch.Status))
			return
		}
	}
	if patch.Result != nil {
		it.Result = patch.Result
	}
	it.UpdatedAt = time.Now().UTC()

	if err := h.Store.UpdateItinerary(r.Context(), it); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, it)
}

func (h *Handlers) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itineraryID")
	if err := h.Store.DeleteItinerary(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListItineraryTraces(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itineraryID")
	if _, err := h.Store.GetItinerary(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	traces, err := h.Store.ListTraces(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if traces == nil {
		traces = []models.AgentTrace{}
	}
	respondJSON(w, http.StatusOK, traces)
}

// ExportICS renders a completed itinerary as an iCalendar download.
func (h *Handlers) ExportICS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itineraryID")
	it, err := h.Store.GetItinerary(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if it.Result == nil {
		respondError(w, http.StatusConflict, "itinerary has no generated result to export")
		return
	}

	cal := booking.BuildICS(it)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tripsmith-"+it.ID+".ics"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(cal))
}

// ══════════════════════════════════════════════════════════════
// ── Streaming ────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

const (
	streamKeepalive = 15 * time.Second
	streamLiveness  = 2 * time.Minute
)

type streamEvent struct {
	name string
	data interface{}
}

// StreamItinerary runs the pipeline in the background and streams
// progress to the client as server-sent events. Generation keeps
// running and persisting traces even if the client disconnects.
func (h *Handlers) StreamItinerary(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	it, ok := h.newItinerary(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffered so a slow client never stalls the pipeline; progress
	// events are droppable, the terminal event is not.
	events := make(chan streamEvent, 64)

	go func() {
		defer close(events)

		// The pipeline outlives the request connection.
		ctx := context.WithoutCancel(r.Context())
		resp, err := h.Orchestrator.Generate(ctx, it, func(stage, status, detail string) {
			ev := streamEvent{name: "progress", data: map[string]string{
				"itinerary_id": it.ID,
				"stage":        stage,
				"status":       status,
				"detail":       detail,
			}}
			select {
			case events <- ev:
			default:
			}
		})
		if err != nil {
			_, code := generationStatus(err)
			events <- streamEvent{name: "error", data: map[string]string{
				"itinerary_id": it.ID,
				"code":         code,
				"error":        err.Error(),
			}}
			return
		}
		events <- streamEvent{name: "result", data: resp}
	}()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	liveness := time.NewTimer(streamLiveness)
	defer liveness.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				writeSSE(w, flusher, "done", map[string]string{"itinerary_id": it.ID})
				return
			}
			writeSSE(w, flusher, ev.name, ev.data)
			if !liveness.Stop() {
				<-liveness.C
			}
			liveness.Reset(streamLiveness)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-liveness.C:
			writeSSE(w, flusher, "error", map[string]string{
				"itinerary_id": it.ID,
				"code":         "stream_timeout",
				"error":        "no pipeline activity within liveness window",
			})
			return
		case <-r.Context().Done():
			// Client gone; the generation goroutine keeps running.
			log.Debug().Str("itinerary_id", it.ID).Msg("stream client disconnected")
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}

// ══════════════════════════════════════════════════════════════
// ── Helpers ──────────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// newItinerary decodes and validates the trip request, persists a fresh
// queued record, and reports any failure to the client. The boolean is
// false when a response has already been written.
func (h *Handlers) newItinerary(w http.ResponseWriter, r *http.Request) (*models.Itinerary, bool) {
	var req models.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	now := time.Now().UTC()
	it := &models.Itinerary{
		ID:        uuid.New().String(),
		Status:    models.ItineraryQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.CreateItinerary(r.Context(), it); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	log.Info().
		Str("itinerary_id", it.ID).
		Str("destination", req.Destination).
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Msg("itinerary created")

	return it, true
}

// generationStatus maps pipeline errors to an HTTP status and a stable
// machine-readable error code.
func generationStatus(err error) (int, string) {
	var quota *gemini.QuotaError
	if errors.As(err, &quota) {
		return http.StatusTooManyRequests, "quota_exhausted"
	}
	var gen *gemini.GenerationError
	if errors.Is(err, gemini.ErrNotConfigured) || errors.As(err, &gen) {
		return http.StatusServiceUnavailable, "gemini_error"
	}
	return http.StatusInternalServerError, "generation_failed"
}

func respondStoreError(w http.ResponseWriter, err error) {
	var notFound *store.ErrNotFound
	if errors.As(err, &notFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondErrorCode(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}
