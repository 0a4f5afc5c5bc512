package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"samscout/opportunity-service/internal/model"
)

// GetCheckpoint returns the sync checkpoint for one category, or (nil, nil)
// before the first successful sync.
func (s *Store) GetCheckpoint(ctx context.Context, category string) (*model.Checkpoint, error) {
	var (
		cp       model.Checkpoint
		syncedTo *time.Time
		runAt    *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT category, last_synced_through, last_offset, last_run_count, last_run_at
		FROM sync_checkpoints WHERE category = $1`,
		category,
	).Scan(&cp.Category, &syncedTo, &cp.LastOffset, &cp.LastRunCount, &runAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", category, err)
	}

	if syncedTo != nil {
		cp.LastSyncedThrough = *syncedTo
	}
	if runAt != nil {
		cp.LastRunAt = *runAt
	}
	return &cp, nil
}

// SaveCheckpoint rewrites the checkpoint for one category.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_checkpoints (category, last_synced_through, last_offset, last_run_count, last_run_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category) DO UPDATE SET
			last_synced_through = EXCLUDED.last_synced_through,
			last_offset         = EXCLUDED.last_offset,
			last_run_count      = EXCLUDED.last_run_count,
			last_run_at         = EXCLUDED.last_run_at`,
		cp.Category, nullableTime(cp.LastSyncedThrough), cp.LastOffset,
		cp.LastRunCount, nullableTime(cp.LastRunAt),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.Category, err)
	}
	return nil
}

// ListCheckpoints returns every category checkpoint, for operational
// inspection.
func (s *Store) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, last_synced_through, last_offset, last_run_count, last_run_at
		FROM sync_checkpoints ORDER BY category ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []model.Checkpoint
	for rows.Next() {
		var (
			cp       model.Checkpoint
			syncedTo *time.Time
			runAt    *time.Time
		)
		if err := rows.Scan(&cp.Category, &syncedTo, &cp.LastOffset, &cp.LastRunCount, &runAt); err != nil {
			return nil, fmt.Errorf("list checkpoints scan: %w", err)
		}
		if syncedTo != nil {
			cp.LastSyncedThrough = *syncedTo
		}
		if runAt != nil {
			cp.LastRunAt = *runAt
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
