package api

import (
	"encoding/json"
	"net/http"

	"github.com/tripsmith/tripsmith/internal/api/handlers"
	"github.com/tripsmith/tripsmith/internal/api/middleware"
	"github.com/tripsmith/tripsmith/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/itineraries", func(r chi.Router) {
			r.Get("/", h.ListItineraries)
			r.Post("/", h.CreateItinerary)
			r.Post("/generate", h.GenerateItinerary)
			r.Post("/stream", h.StreamItinerary)
			r.Route("/{itineraryID}", func(r chi.Router) {
				r.Get("/", h.GetItinerary)
				r.Patch("/", h.PatchItinerary)
				r.Delete("/", h.DeleteItinerary)
				r.Get("/traces", h.ListItineraryTraces)
				r.Get("/ics", h.ExportICS)
			})
		})
		r.Route("/edit", func(r chi.Router) {
			r.Post("/swap", h.SwapBlock)
			r.Post("/regenerate-day", h.RegenerateDay)
			r.Post("/block", h.EditBlock)
		})
		r.Get("/places/autocomplete", h.PlacesAutocomplete)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "tripsmith",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "tripsmith",
		})
	}
}
