package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"samscout/opportunity-service/internal/model"
)

// CreateCapability inserts a new capability and returns its generated ID.
func (s *Store) CreateCapability(ctx context.Context, c *model.Capability) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO capabilities (
			id, name, description, keywords, naics_codes,
			preferred_agencies, preferred_set_asides, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.Description, c.Keywords, c.NAICSCodes,
		c.PreferredAgencies, c.PreferredSetAsides, c.Active,
	)
	if err != nil {
		return "", fmt.Errorf("create capability %q: %w", c.Name, err)
	}
	return c.ID, nil
}

// UpdateCapability replaces the mutable fields of an existing capability.
// Returns false when the ID is unknown.
func (s *Store) UpdateCapability(ctx context.Context, c *model.Capability) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE capabilities SET
			name = $2,
			description = $3,
			keywords = $4,
			naics_codes = $5,
			preferred_agencies = $6,
			preferred_set_asides = $7,
			active = $8,
			updated_at = now()
		WHERE id = $1`,
		c.ID, c.Name, c.Description, c.Keywords, c.NAICSCodes,
		c.PreferredAgencies, c.PreferredSetAsides, c.Active,
	)
	if err != nil {
		return false, fmt.Errorf("update capability %s: %w", c.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetCapability returns one capability by ID, or (nil, nil) when unknown.
func (s *Store) GetCapability(ctx context.Context, id string) (*model.Capability, error) {
	row := s.pool.QueryRow(ctx, selectCapability+` WHERE id = $1`, id)

	c, err := scanCapability(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capability %s: %w", id, err)
	}
	return c, nil
}

// ListCapabilities returns capabilities ordered by name. With activeOnly,
// inactive profiles are excluded — the set the matcher scores against.
func (s *Store) ListCapabilities(ctx context.Context, activeOnly bool) ([]model.Capability, error) {
	query := selectCapability
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}
	defer rows.Close()

	var caps []model.Capability
	for rows.Next() {
		c, err := scanCapability(rows)
		if err != nil {
			return nil, fmt.Errorf("list capabilities scan: %w", err)
		}
		caps = append(caps, *c)
	}
	return caps, rows.Err()
}

const selectCapability = `SELECT id, name, description, keywords, naics_codes,
	preferred_agencies, preferred_set_asides, active, created_at, updated_at
FROM capabilities`

func scanCapability(row pgx.Row) (*model.Capability, error) {
	var c model.Capability
	if err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Keywords, &c.NAICSCodes,
		&c.PreferredAgencies, &c.PreferredSetAsides, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
