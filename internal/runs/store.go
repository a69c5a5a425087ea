package runs

import (
	"context"
	"fmt"

	"runner-service/pkg/db"
)

// Store persists run entries.
type Store interface {
	Insert(ctx context.Context, r *Run) error
	ListByUser(ctx context.Context, userID string) ([]Run, error)
	TotalDistance(ctx context.Context, userID string) (float64, error)
}

// PostgresStore is backed by the runs table.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

// Insert stores r and fills in its generated id.
func (s *PostgresStore) Insert(ctx context.Context, r *Run) error {
	err := s.q.QueryRow(ctx,
		`INSERT INTO runs (user_id, distance, route_json, created_date)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		r.UserID, r.Distance, string(r.Route), r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("runs insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Run, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, user_id, distance, route_json, created_date
		 FROM runs WHERE user_id=$1 ORDER BY created_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("runs list: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		var route string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Distance, &route, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("runs scan: %w", err)
		}
		r.Route = []byte(route)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs list: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) TotalDistance(ctx context.Context, userID string) (float64, error) {
	var total float64
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(distance), 0) FROM runs WHERE user_id=$1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("runs total: %w", err)
	}
	return total, nil
}
