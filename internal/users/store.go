package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"runner-service/internal/apperr"
	"runner-service/pkg/db"
)

// Store persists users and their credentials.
type Store interface {
	InsertUser(ctx context.Context, u *User) error
	UserByName(ctx context.Context, userName string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	InsertCredential(ctx context.Context, c *Credential) error
	Credential(ctx context.Context, userID, userName string) (*Credential, error)
	UpdatePassword(ctx context.Context, userID, userName, hash string) error
	SetOTP(ctx context.Context, userID, userName, code string, expiry time.Time) error
	// ResetPassword replaces the hash and clears the OTP only if the stored
	// code still equals expectedOTP. It reports whether a row changed.
	ResetPassword(ctx context.Context, userID, userName, expectedOTP, hash string) (bool, error)
}

// PostgresStore is backed by the users and user_creds tables.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

const userColumns = `user_id,user_name,user_type,status,company_name,created_at`

func (s *PostgresStore) InsertUser(ctx context.Context, u *User) error {
	var company *string
	if u.CompanyName != "" {
		company = &u.CompanyName
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.UserName, string(u.Type), u.Status, company, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("users insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByName(ctx context.Context, userName string) (*User, error) {
	return s.scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_name=$1`, userName))
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id))
}

func (s *PostgresStore) scanUser(row pgx.Row) (*User, error) {
	var u User
	var userType string
	var company *string
	err := row.Scan(&u.ID, &u.UserName, &userType, &u.Status, &company, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users get: %w", err)
	}
	u.Type = Type(userType)
	if company != nil {
		u.CompanyName = *company
	}
	return &u, nil
}

func (s *PostgresStore) InsertCredential(ctx context.Context, c *Credential) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO user_creds (user_id,user_name,user_pass) VALUES ($1,$2,$3)`,
		c.UserID, c.UserName, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("credentials insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Credential(ctx context.Context, userID, userName string) (*Credential, error) {
	var c Credential
	err := s.q.QueryRow(ctx,
		`SELECT user_id,user_name,user_pass,otp_code,otp_expiry
		 FROM user_creds WHERE user_id=$1 AND user_name=$2`, userID, userName).
		Scan(&c.UserID, &c.UserName, &c.PasswordHash, &c.OTPCode, &c.OTPExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credentials get: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, userName, hash string) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE user_creds SET user_pass=$1 WHERE user_id=$2 AND user_name=$3`,
		hash, userID, userName)
	if err != nil {
		return fmt.Errorf("credentials update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetOTP(ctx context.Context, userID, userName, code string, expiry time.Time) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE user_creds SET otp_code=$1, otp_expiry=$2 WHERE user_id=$3 AND user_name=$4`,
		code, expiry, userID, userName)
	if err != nil {
		return fmt.Errorf("credentials set otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ResetPassword(ctx context.Context, userID, userName, expectedOTP, hash string) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE user_creds SET user_pass=$1, otp_code=NULL, otp_expiry=NULL
		 WHERE user_id=$2 AND user_name=$3 AND otp_code=$4`,
		hash, userID, userName, expectedOTP)
	if err != nil {
		return false, fmt.Errorf("credentials reset: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
