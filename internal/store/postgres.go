// Package store — PostgreSQL-backed Store implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, url string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Msg("Connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS itineraries (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			request JSONB NOT NULL,
			result JSONB,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_traces (
			id UUID PRIMARY KEY,
			itinerary_id UUID NOT NULL REFERENCES itineraries(id) ON DELETE CASCADE,
			agent_name TEXT NOT NULL,
			step_name TEXT NOT NULL,
			input JSONB,
			output JSONB,
			raw_text TEXT NOT NULL DEFAULT '',
			issues JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_traces_itinerary ON agent_traces(itinerary_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS external_cache (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ── Itinerary Store ─────────────────────────────────────────

func (p *PostgresStore) ListItineraries(ctx context.Context, limit int) ([]models.Itinerary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, status, request, result, error_message, created_at, updated_at
		 FROM itineraries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	defer rows.Close()

	var out []models.Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetItinerary(ctx context.Context, id string) (*models.Itinerary, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, status, request, result, error_message, created_at, updated_at
		 FROM itineraries WHERE id = $1`, id)
	it, err := scanItinerary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "itinerary", Key: id}
	}
	return it, err
}

func (p *PostgresStore) CreateItinerary(ctx context.Context, it *models.Itinerary) error {
	reqJSON, resJSON, err := marshalItinerary(it)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO itineraries (id, status, request, result, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.Status, reqJSON, resJSON, it.ErrorMessage, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create itinerary: %w", err)
	}
	return nil
}

func (p *PostgresStore) UpdateItinerary(ctx context.Context, it *models.Itinerary) error {
	it.UpdatedAt = time.Now().UTC()
	reqJSON, resJSON, err := marshalItinerary(it)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE itineraries SET status = $2, request = $3, result = $4, error_message = $5, updated_at = $6
		 WHERE id = $1`,
		it.ID, it.Status, reqJSON, resJSON, it.ErrorMessage, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "itinerary", Key: it.ID}
	}
	return nil
}

func (p *PostgresStore) DeleteItinerary(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM itineraries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "itinerary", Key: id}
	}
	return nil
}

func marshalItinerary(it *models.Itinerary) ([]byte, []byte, error) {
	reqJSON, err := json.Marshal(it.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}
	var resJSON []byte
	if it.Result != nil {
		resJSON, err = json.Marshal(it.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return reqJSON, resJSON, nil
}

func scanItinerary(row pgx.Row) (*models.Itinerary, error) {
	var it models.Itinerary
	var reqJSON, resJSON []byte
	if err := row.Scan(&it.ID, &it.Status, &reqJSON, &resJSON, &it.ErrorMessage, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan itinerary: %w", err)
	}
	if err := json.Unmarshal(reqJSON, &it.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if len(resJSON) > 0 {
		it.Result = &models.ItineraryResponse{}
		if err := json.Unmarshal(resJSON, it.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &it, nil
}

// ── Trace Store ─────────────────────────────────────────────

func (p *PostgresStore) ListTraces(ctx context.Context, itineraryID string) ([]models.AgentTrace, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, itinerary_id, agent_name, step_name, input, output, raw_text, issues, created_at
		 FROM agent_traces WHERE itinerary_id = $1 ORDER BY created_at`, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var out []models.AgentTrace
	for rows.Next() {
		var tr models.AgentTrace
		var issuesJSON []byte
		if err := rows.Scan(&tr.ID, &tr.ItineraryID, &tr.AgentName, &tr.StepName,
			&tr.InputJSON, &tr.OutputJSON, &tr.RawText, &issuesJSON, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		if len(issuesJSON) > 0 {
			if err := json.Unmarshal(issuesJSON, &tr.Issues); err != nil {
				return nil, fmt.Errorf("decode issues: %w", err)
			}
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateTrace(ctx context.Context, trace *models.AgentTrace) error {
	issuesJSON, err := json.Marshal(trace.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO agent_traces (id, itinerary_id, agent_name, step_name, input, output, raw_text, issues, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		trace.ID, trace.ItineraryID, trace.AgentName, trace.StepName,
		[]byte(trace.InputJSON), []byte(trace.OutputJSON), trace.RawText, issuesJSON, trace.CreatedAt)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteTraces(ctx context.Context, itineraryID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM agent_traces WHERE itinerary_id = $1`, itineraryID); err != nil {
		return fmt.Errorf("delete traces: %w", err)
	}
	return nil
}

// ── Cache Store ─────────────────────────────────────────────

func (p *PostgresStore) GetCacheEntry(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM external_cache WHERE key = $1 AND expires_at > now()`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "cache entry", Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return value, nil
}

func (p *PostgresStore) PutCacheEntry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO external_cache (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func (p *PostgresStore) PruneCache(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM external_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ── Lifecycle ───────────────────────────────────────────────

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
