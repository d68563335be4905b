// Package server provides the public entry point for initializing the
// TripSmith API server.
//
// It wires configuration, storage, the provider clients, the Gemini
// client and the generation pipeline into a single http.Handler:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/api"
	"github.com/tripsmith/tripsmith/internal/api/handlers"
	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/pipeline"
	"github.com/tripsmith/tripsmith/internal/providers"
	"github.com/tripsmith/tripsmith/internal/store"
	"github.com/tripsmith/tripsmith/internal/telemetry"
)

// Server holds the initialized TripSmith service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store backing itineraries, traces and the
	// provider cache.
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration and
// returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore := openStore(ctx, cfg)
	if err := dataStore.Migrate(ctx); err != nil {
		dataStore.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	providerCache := cache.New(dataStore)
	prov := providers.New(cfg.Providers, providerCache)

	client := gemini.NewClient(cfg.Gemini)
	if client.Enabled() {
		log.Info().Str("model", cfg.Gemini.Model).Msg("Gemini client initialized")
	} else {
		log.Warn().Msg("Gemini API key not set, generation endpoints will refuse requests")
	}

	ag := agents.New(client, prov, cfg.Pipeline.BufferMinutes)
	orch := pipeline.New(ag, dataStore, client, cfg.Pipeline)

	h := handlers.New(dataStore, orch, ag, cfg.Version)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// openStore selects PostgreSQL when a database URL is configured and
// reachable, and otherwise falls back to the snapshot-backed memory
// store.
func openStore(ctx context.Context, cfg *config.Config) store.Store {
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
		if err == nil {
			log.Info().Msg("PostgreSQL store initialized")
			return pg
		}
		log.Warn().Err(err).Msg("PostgreSQL unavailable, falling back to in-memory store")
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("In-memory store initialized")
	return store.NewMemoryStore(cfg.DataDir)
}
