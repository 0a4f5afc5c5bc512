package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"samscout/opportunity-service/internal/model"
)

// UpsertOpportunity inserts or updates one opportunity keyed by notice ID.
// Idempotent: re-running with identical input only advances last_updated.
// Status and created_at are never overwritten — status belongs to humans
// once set.
func (s *Store) UpsertOpportunity(ctx context.Context, opp *model.Opportunity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO opportunities (
			notice_id, title, agency, posted_date, due_date, type, set_aside,
			naics, naics_desc, url, description, raw_data, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13)
		ON CONFLICT (notice_id) DO UPDATE SET
			title        = EXCLUDED.title,
			agency       = EXCLUDED.agency,
			posted_date  = EXCLUDED.posted_date,
			due_date     = EXCLUDED.due_date,
			type         = EXCLUDED.type,
			set_aside    = EXCLUDED.set_aside,
			naics        = EXCLUDED.naics,
			naics_desc   = EXCLUDED.naics_desc,
			url          = EXCLUDED.url,
			description  = EXCLUDED.description,
			raw_data     = EXCLUDED.raw_data,
			last_updated = now()`,
		opp.NoticeID, opp.Title, opp.Agency, opp.PostedDate, opp.DueDate,
		opp.Type, opp.SetAside, opp.NAICS, opp.NAICSDesc, opp.URL,
		opp.Description, rawOrNull(opp.Raw), string(model.StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("upsert opportunity %s: %w", opp.NoticeID, err)
	}
	return nil
}

// GetOpportunity returns one opportunity by notice ID, or (nil, nil) when
// unknown.
func (s *Store) GetOpportunity(ctx context.Context, noticeID string) (*model.Opportunity, error) {
	row := s.pool.QueryRow(ctx, selectOpportunity+` WHERE notice_id = $1`, noticeID)

	opp, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity %s: %w", noticeID, err)
	}
	return opp, nil
}

// OpportunityFilter narrows ListOpportunities. Zero values mean "no
// constraint".
type OpportunityFilter struct {
	NAICS            string
	Agency           string // case-insensitive substring
	SetAside         string
	PostedWithinDays int
	Limit            int
	Skip             int
}

// ListOpportunities returns opportunities matching the filter, newest
// posted first.
func (s *Store) ListOpportunities(ctx context.Context, f OpportunityFilter) ([]model.Opportunity, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.NAICS != "" {
		add("naics = ?", f.NAICS)
	}
	if f.Agency != "" {
		add("agency ILIKE ?", "%"+f.Agency+"%")
	}
	if f.SetAside != "" {
		add("set_aside = ?", f.SetAside)
	}
	if f.PostedWithinDays > 0 {
		add("posted_date >= ?", time.Now().UTC().AddDate(0, 0, -f.PostedWithinDays))
	}

	query := selectOpportunity
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY posted_date DESC NULLS LAST"

	limit := f.Limit
	if limit < 1 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, f.Skip)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("list opportunities scan: %w", err)
		}
		opps = append(opps, *opp)
	}
	return opps, rows.Err()
}

// ListOpportunityIDs returns notice IDs, newest posted first, for batch
// analysis.
func (s *Store) ListOpportunityIDs(ctx context.Context, limit int) ([]string, error) {
	if limit < 1 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT notice_id FROM opportunities ORDER BY posted_date DESC NULLS LAST LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list opportunity ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list opportunity ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetOpportunityStatus updates the human-owned status field. Returns false
// when the notice ID is unknown.
func (s *Store) SetOpportunityStatus(ctx context.Context, noticeID string, status model.Status) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = $2, last_updated = now() WHERE notice_id = $1`,
		noticeID, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("set opportunity status %s: %w", noticeID, err)
	}
	return tag.RowsAffected() > 0, nil
}

const selectOpportunity = `SELECT notice_id, title, agency, posted_date, due_date, type, set_aside,
	naics, naics_desc, url, description, raw_data, status, created_at, last_updated
FROM opportunities`

func scanOpportunity(row pgx.Row) (*model.Opportunity, error) {
	var (
		opp    model.Opportunity
		raw    []byte
		status string
	)
	if err := row.Scan(
		&opp.NoticeID, &opp.Title, &opp.Agency, &opp.PostedDate, &opp.DueDate,
		&opp.Type, &opp.SetAside, &opp.NAICS, &opp.NAICSDesc, &opp.URL,
		&opp.Description, &raw, &status, &opp.CreatedAt, &opp.LastUpdated,
	); err != nil {
		return nil, err
	}
	opp.Raw = raw
	opp.Status = model.Status(status)
	return &opp, nil
}

func rawOrNull(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
