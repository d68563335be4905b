// Package store provides the storage interface and implementations for
// the TripSmith control plane. The in-memory store covers local dev and
// tests; PostgreSQL backs production deployments.
package store

import (
	"context"
	"time"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// Store is the primary storage interface. All handler and pipeline code
// depends on this interface, making it easy to swap between in-memory
// (tests) and PostgreSQL (production) implementations.
type Store interface {
	ItineraryStore
	TraceStore
	CacheStore

	// Ping checks if the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate creates or updates the storage schema.
	Migrate(ctx context.Context) error
}

// ── Itinerary Store ─────────────────────────────────────────

type ItineraryStore interface {
	ListItineraries(ctx context.Context, limit int) ([]models.Itinerary, error)
	GetItinerary(ctx context.Context, id string) (*models.Itinerary, error)
	CreateItinerary(ctx context.Context, it *models.Itinerary) error
	UpdateItinerary(ctx context.Context, it *models.Itinerary) error
	DeleteItinerary(ctx context.Context, id string) error
}

// ── Trace Store ─────────────────────────────────────────────

type TraceStore interface {
	ListTraces(ctx context.Context, itineraryID string) ([]models.AgentTrace, error)
	CreateTrace(ctx context.Context, trace *models.AgentTrace) error
	DeleteTraces(ctx context.Context, itineraryID string) error
}

// ── Cache Store ─────────────────────────────────────────────

// CacheStore persists external provider responses across restarts. The
// key encodes provider and parameters; expired entries read as misses.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, key string) ([]byte, error)
	PutCacheEntry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	PruneCache(ctx context.Context) (int64, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
