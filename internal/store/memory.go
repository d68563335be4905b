// Package store — in-memory Store implementation.
// Used as a fallback when PostgreSQL is not available (local dev, tests).
// Supports file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// cacheEntry is a cached provider response with its expiry.
type cacheEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// snapshot is the JSON-serializable shape written to disk. The cache is
// deliberately excluded; provider responses are cheap to refetch.
type snapshot struct {
	Itineraries map[string]*models.Itinerary   `json:"itineraries"`
	Traces      map[string][]models.AgentTrace `json:"traces"` // key: itinerary_id
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu          sync.RWMutex
	itineraries map[string]*models.Itinerary   // key: id
	traces      map[string][]models.AgentTrace // key: itinerary_id, append order
	cache       map[string]cacheEntry          // key: provider cache key

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop
	closeOnce    sync.Once
}

// NewMemoryStore creates a new in-memory store. If dataDir is non-empty,
// itineraries and traces are persisted to a JSON file in that directory.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{
		itineraries: make(map[string]*models.Itinerary),
		traces:      make(map[string][]models.AgentTrace),
		cache:       make(map[string]cacheEntry),
		saveCh:      make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
	}

	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists itineraries and traces to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Itineraries: m.itineraries,
		Traces:      m.traces,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Corrupt snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Itineraries != nil {
		m.itineraries = snap.Itineraries
	}
	if snap.Traces != nil {
		m.traces = snap.Traces
	}

	log.Info().
		Int("itineraries", len(m.itineraries)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

// ── Itinerary Store ─────────────────────────────────────────

func (m *MemoryStore) ListItineraries(ctx context.Context, limit int) ([]models.Itinerary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Itinerary, 0, len(m.itineraries))
	for _, it := range m.itineraries {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetItinerary(ctx context.Context, id string) (*models.Itinerary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.itineraries[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "itinerary", Key: id}
	}
	cp := *it
	return &cp, nil
}

func (m *MemoryStore) CreateItinerary(ctx context.Context, it *models.Itinerary) error {
	m.mu.Lock()
	cp := *it
	m.itineraries[it.ID] = &cp
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateItinerary(ctx context.Context, it *models.Itinerary) error {
	m.mu.Lock()
	if _, ok := m.itineraries[it.ID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "itinerary", Key: it.ID}
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	m.itineraries[it.ID] = &cp
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteItinerary(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.itineraries[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "itinerary", Key: id}
	}
	delete(m.itineraries, id)
	delete(m.traces, id)
	m.mu.Unlock()

	m.requestSave()
	return nil
}

// ── Trace Store ─────────────────────────────────────────────

func (m *MemoryStore) ListTraces(ctx context.Context, itineraryID string) ([]models.AgentTrace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	traces := m.traces[itineraryID]
	out := make([]models.AgentTrace, len(traces))
	copy(out, traces)
	return out, nil
}

func (m *MemoryStore) CreateTrace(ctx context.Context, trace *models.AgentTrace) error {
	m.mu.Lock()
	m.traces[trace.ItineraryID] = append(m.traces[trace.ItineraryID], *trace)
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteTraces(ctx context.Context, itineraryID string) error {
	m.mu.Lock()
	delete(m.traces, itineraryID)
	m.mu.Unlock()

	m.requestSave()
	return nil
}

// ── Cache Store ─────────────────────────────────────────────

func (m *MemoryStore) GetCacheEntry(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.cache[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, &ErrNotFound{Entity: "cache entry", Key: key}
	}
	return entry.Value, nil
}

func (m *MemoryStore) PutCacheEntry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.cache[key] = cacheEntry{Value: value, ExpiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PruneCache(ctx context.Context) (int64, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var pruned int64
	for key, entry := range m.cache {
		if now.After(entry.ExpiresAt) {
			delete(m.cache, key)
			pruned++
		}
	}
	return pruned, nil
}

// ── Lifecycle ───────────────────────────────────────────────

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		if m.snapshotPath != "" {
			m.saveSnapshot()
		}
	})
	return nil
}
