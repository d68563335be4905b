package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/providers"
)

// ══════════════════════════════════════════════════════════════
// ── Edit Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// The edit endpoints operate on itinerary fragments sent in the request
// body rather than stored records, so clients can refine a plan they
// have already modified locally.

// SwapBlock returns alternative suggestions for one schedule block.
func (h *Handlers) SwapBlock(w http.ResponseWriter, r *http.Request) {
	var req agents.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CurrentBlock.Title == "" && req.CurrentBlock.StartTime == "" {
		respondError(w, http.StatusBadRequest, "current_block is required")
		return
	}
	if req.Destination == "" {
		req.Destination = "Unknown"
	}

	res, err := h.Agents.SwapBlock(r.Context(), req)
	if err != nil {
		status, code := generationStatus(err)
		respondErrorCode(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// RegenerateDay replaces a single day's schedule with fresh activities.
func (h *Handlers) RegenerateDay(w http.ResponseWriter, r *http.Request) {
	var req agents.RegenerateDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Day.Date == "" {
		respondError(w, http.StatusBadRequest, "day data is required")
		return
	}
	if req.Destination == "" {
		req.Destination = "Unknown"
	}

	day, err := h.Agents.RegenerateDay(r.Context(), req)
	if err != nil {
		status, code := generationStatus(err)
		respondErrorCode(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"day": day})
}

// EditBlock rewrites one schedule block per a free-form instruction.
func (h *Handlers) EditBlock(w http.ResponseWriter, r *http.Request) {
	var req agents.EditBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Instruction == "" {
		respondError(w, http.StatusBadRequest, "instruction is required")
		return
	}
	if req.CurrentBlock.Title == "" && req.CurrentBlock.StartTime == "" {
		respondError(w, http.StatusBadRequest, "current_block is required")
		return
	}

	res, err := h.Agents.EditBlock(r.Context(), req)
	if err != nil {
		status, code := generationStatus(err)
		respondErrorCode(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// PlacesAutocomplete proxies destination autocomplete for the trip form.
func (h *Handlers) PlacesAutocomplete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if h.Agents == nil || h.Agents.Providers == nil || h.Agents.Providers.Places == nil {
		respondJSON(w, http.StatusOK, map[string][]providers.Prediction{"predictions": {}})
		return
	}

	predictions, err := h.Agents.Providers.Places.Autocomplete(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string][]providers.Prediction{"predictions": predictions})
}
