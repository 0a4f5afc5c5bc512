package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"samscout/opportunity-service/internal/model"
)

// RecordSyncRun appends one row to the sync-job history.
func (s *Store) RecordSyncRun(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	var report *string
	if run.Report != nil {
		data, err := json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshal sync report: %w", err)
		}
		str := string(data)
		report = &str
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, executed_at, status, report, error)
		VALUES ($1, $2, $3, $4::jsonb, $5)`,
		run.ID, run.ExecutedAt, run.Status, report, run.Error,
	)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// RecentSyncRuns returns the most recent sync-job history rows, newest
// first.
func (s *Store) RecentSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, executed_at, status, report, error
		FROM sync_runs ORDER BY executed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent sync runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var (
			run    model.SyncRun
			report []byte
		)
		if err := rows.Scan(&run.ID, &run.ExecutedAt, &run.Status, &report, &run.Error); err != nil {
			return nil, fmt.Errorf("recent sync runs scan: %w", err)
		}
		if len(report) > 0 {
			run.Report = &model.SyncReport{}
			if err := json.Unmarshal(report, run.Report); err != nil {
				return nil, fmt.Errorf("unmarshal sync report: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
