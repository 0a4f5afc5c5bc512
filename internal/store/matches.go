package store

import (
	"context"
	"encoding/json"
	"fmt"

	"samscout/opportunity-service/internal/model"
)

// UpsertMatch inserts or replaces the score for one
// (opportunity, capability) pair. Re-analysis overwrites; match history is
// not kept.
func (s *Store) UpsertMatch(ctx context.Context, m *model.Match) error {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return fmt.Errorf("marshal match details: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO matches (opportunity_id, capability_id, capability_name, score, details, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		ON CONFLICT (opportunity_id, capability_id) DO UPDATE SET
			capability_name = EXCLUDED.capability_name,
			score           = EXCLUDED.score,
			details         = EXCLUDED.details,
			created_at      = EXCLUDED.created_at`,
		m.OpportunityID, m.CapabilityID, m.CapabilityName, m.Score,
		string(details), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert match %s/%s: %w", m.OpportunityID, m.CapabilityID, err)
	}
	return nil
}

// HighMatches returns persisted matches with score >= threshold, sorted
// descending by score with capability name ascending on ties, truncated to
// limit.
func (s *Store) HighMatches(ctx context.Context, threshold float64, limit int) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx,
		selectMatch+` WHERE score >= $1 ORDER BY score DESC, capability_name ASC LIMIT $2`,
		threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("high matches: %w", err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

// MatchesForOpportunity returns all persisted matches for one opportunity,
// best first.
func (s *Store) MatchesForOpportunity(ctx context.Context, noticeID string) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx,
		selectMatch+` WHERE opportunity_id = $1 ORDER BY score DESC, capability_name ASC`,
		noticeID,
	)
	if err != nil {
		return nil, fmt.Errorf("matches for opportunity %s: %w", noticeID, err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

// Statistics returns aggregate counts for the dashboard.
func (s *Store) Statistics(ctx context.Context) (*model.Statistics, error) {
	var stats model.Statistics
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM opportunities),
		(SELECT count(*) FROM capabilities),
		(SELECT count(*) FROM capabilities WHERE active),
		(SELECT count(*) FROM matches),
		(SELECT count(*) FROM matches WHERE score >= 70)`,
	).Scan(
		&stats.TotalOpportunities, &stats.TotalCapabilities,
		&stats.ActiveCapabilities, &stats.TotalMatches, &stats.HighMatches,
	)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return &stats, nil
}

const selectMatch = `SELECT opportunity_id, capability_id, capability_name, score, details, created_at
FROM matches`

type rowsLike interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectMatches(rows rowsLike) ([]model.Match, error) {
	var matches []model.Match
	for rows.Next() {
		var (
			m       model.Match
			details []byte
		)
		if err := rows.Scan(
			&m.OpportunityID, &m.CapabilityID, &m.CapabilityName,
			&m.Score, &details, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("match scan: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &m.Details); err != nil {
				return nil, fmt.Errorf("unmarshal match details: %w", err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
