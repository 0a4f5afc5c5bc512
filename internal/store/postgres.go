// Package store persists opportunities, capabilities, matches, sync
// checkpoints and sync-run history in Postgres, with raw upstream payloads
// kept as JSONB.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the shared connection pool. All methods are independent
// atomic operations keyed by unique identifiers; there is no multi-document
// transactional scope.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS opportunities (
		notice_id    text PRIMARY KEY,
		title        text NOT NULL DEFAULT '',
		agency       text NOT NULL DEFAULT '',
		posted_date  timestamptz,
		due_date     timestamptz,
		type         text NOT NULL DEFAULT '',
		set_aside    text NOT NULL DEFAULT '',
		naics        text NOT NULL DEFAULT '',
		naics_desc   text NOT NULL DEFAULT '',
		url          text NOT NULL DEFAULT '',
		description  text NOT NULL DEFAULT '',
		raw_data     jsonb,
		status       text NOT NULL DEFAULT 'OPEN',
		created_at   timestamptz NOT NULL DEFAULT now(),
		last_updated timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_posted_date ON opportunities (posted_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_due_date ON opportunities (due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_naics ON opportunities (naics)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_agency ON opportunities (agency)`,
	`CREATE INDEX IF NOT EXISTS idx_opportunities_set_aside ON opportunities (set_aside)`,

	`CREATE TABLE IF NOT EXISTS capabilities (
		id                   text PRIMARY KEY,
		name                 text NOT NULL UNIQUE,
		description          text NOT NULL DEFAULT '',
		keywords             text[] NOT NULL DEFAULT '{}',
		naics_codes          text[] NOT NULL DEFAULT '{}',
		preferred_agencies   text[] NOT NULL DEFAULT '{}',
		preferred_set_asides text[] NOT NULL DEFAULT '{}',
		active               boolean NOT NULL DEFAULT true,
		created_at           timestamptz NOT NULL DEFAULT now(),
		updated_at           timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_capabilities_active ON capabilities (active)`,

	`CREATE TABLE IF NOT EXISTS matches (
		opportunity_id  text NOT NULL,
		capability_id   text NOT NULL,
		capability_name text NOT NULL DEFAULT '',
		score           double precision NOT NULL,
		details         jsonb,
		created_at      timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (opportunity_id, capability_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_score ON matches (score DESC)`,

	`CREATE TABLE IF NOT EXISTS sync_checkpoints (
		category            text PRIMARY KEY,
		last_synced_through timestamptz,
		last_offset         integer NOT NULL DEFAULT 0,
		last_run_count      integer NOT NULL DEFAULT 0,
		last_run_at         timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id          text PRIMARY KEY,
		executed_at timestamptz NOT NULL,
		status      text NOT NULL,
		report      jsonb,
		error       text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_executed_at ON sync_runs (executed_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Called once at process start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
