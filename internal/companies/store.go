package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"runner-service/internal/apperr"
	"runner-service/pkg/db"
)

// Store persists company profiles.
type Store interface {
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
}

// PostgresStore is backed by the companies table.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *Profile) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO companies (user_id, company, picture, details, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET company=EXCLUDED.company, picture=EXCLUDED.picture,
		     details=EXCLUDED.details, updated_at=EXCLUDED.updated_at`,
		p.UserID, p.Company, nullable(p.Picture), nullable(p.Details), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("companies upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	var picture, details *string
	err := s.q.QueryRow(ctx,
		`SELECT user_id, company, picture, details, updated_at FROM companies WHERE user_id=$1`,
		userID,
	).Scan(&p.UserID, &p.Company, &picture, &details, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("companies get: %w", err)
	}
	if picture != nil {
		p.Picture = *picture
	}
	if details != nil {
		p.Details = *details
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
