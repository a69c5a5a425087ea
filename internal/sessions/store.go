package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"runner-service/internal/apperr"
	"runner-service/pkg/db"
)

// Store persists sessions.
type Store interface {
	Insert(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Deactivate(ctx context.Context, token string) (bool, error)
}

// PostgresStore is the user_sessions table.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO user_sessions (session,user_id,status,expire_date,created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		sess.Token, sess.UserID, sess.Status, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("sessions insert: %w", err)
	}
	return nil
}

// Get returns apperr.ErrNotFound when no row matches.
func (s *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := s.q.QueryRow(ctx,
		`SELECT session,user_id,status,expire_date,created_at
		 FROM user_sessions WHERE session=$1`, token).
		Scan(&sess.Token, &sess.UserID, &sess.Status, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions get: %w", err)
	}
	return &sess, nil
}

// Deactivate flips an active session to inactive. It reports whether a row changed.
func (s *PostgresStore) Deactivate(ctx context.Context, token string) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE user_sessions SET status=$1 WHERE session=$2 AND status=$3`,
		StatusInactive, token, StatusActive)
	if err != nil {
		return false, fmt.Errorf("sessions deactivate: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
