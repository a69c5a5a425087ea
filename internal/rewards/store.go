package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"runner-service/internal/apperr"
	"runner-service/pkg/db"
)

// Store persists reward tokens. Claim and Redeem are compare-and-set on status.
type Store interface {
	InsertBatch(ctx context.Context, tokens []*Token) error
	ByID(ctx context.Context, id int64) (*Token, error)
	ByTkn(ctx context.Context, tkn string) (*Token, error)
	ListByCompany(ctx context.Context, company string) ([]Token, error)
	ListOpen(ctx context.Context, now time.Time) ([]Token, error)
	ListClaimedBy(ctx context.Context, userID string) ([]Token, error)

	// Claim moves an open, unexpired token to claimed. It reports whether a row changed.
	Claim(ctx context.Context, id int64, claimantID string, at time.Time) (bool, error)
	// Redeem moves a token from priorStatus to redeemed. It reports whether a row changed.
	Redeem(ctx context.Context, tkn string, priorStatus int, at time.Time) (bool, error)
}

// PostgresStore is backed by the tokens table.
type PostgresStore struct {
	q db.DBTX
}

func NewPostgresStore(q db.DBTX) *PostgresStore {
	return &PostgresStore{q: q}
}

const tokenColumns = `id,tkn,company_name,issuer_id,claimant_id,status,price,challenge,required_distance,created_date,expire_date,claimed_date,redeemed_date`

const insertColumns = 9

// InsertBatch writes every token in one statement and fills in their ids.
func (s *PostgresStore) InsertBatch(ctx context.Context, tokens []*Token) error {
	if len(tokens) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO tokens (tkn,company_name,issuer_id,status,price,challenge,required_distance,created_date,expire_date) VALUES `)
	args := make([]any, 0, len(tokens)*insertColumns)
	byTkn := make(map[string]*Token, len(tokens))
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(',')
		}
		n := i * insertColumns
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8, n+9)
		args = append(args, t.Tkn, t.CompanyName, t.IssuerID, t.Status,
			nullable(t.Price), nullable(t.Challenge), t.RequiredDistance, t.CreatedAt, t.ExpiresAt)
		byTkn[t.Tkn] = t
	}
	b.WriteString(` RETURNING id,tkn`)

	rows, err := s.q.Query(ctx, b.String(), args...)
	if err != nil {
		return fmt.Errorf("tokens insert: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var tkn string
		if err := rows.Scan(&id, &tkn); err != nil {
			return fmt.Errorf("tokens insert: %w", err)
		}
		if t, ok := byTkn[tkn]; ok {
			t.ID = id
		}
	}
	if err := rows.Err(); err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("tokens insert: duplicate token string: %w", err)
		}
		return fmt.Errorf("tokens insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id int64) (*Token, error) {
	return scanToken(s.q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id=$1`, id))
}

func (s *PostgresStore) ByTkn(ctx context.Context, tkn string) (*Token, error) {
	return scanToken(s.q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE tkn=$1`, tkn))
}

func (s *PostgresStore) ListByCompany(ctx context.Context, company string) ([]Token, error) {
	return s.list(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE company_name=$1 ORDER BY created_date DESC, id DESC`,
		company)
}

func (s *PostgresStore) ListOpen(ctx context.Context, now time.Time) ([]Token, error) {
	return s.list(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		 WHERE status=1 AND (expire_date IS NULL OR expire_date > $1)
		 ORDER BY created_date DESC, id DESC`,
		now)
}

func (s *PostgresStore) ListClaimedBy(ctx context.Context, userID string) ([]Token, error) {
	return s.list(ctx,
		`SELECT `+tokenColumns+` FROM tokens
		 WHERE claimant_id=$1 AND status=2
		 ORDER BY claimed_date DESC, id DESC`,
		userID)
}

func (s *PostgresStore) Claim(ctx context.Context, id int64, claimantID string, at time.Time) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE tokens SET status=2, claimant_id=$1, claimed_date=$2
		 WHERE id=$3 AND status=1 AND (expire_date IS NULL OR expire_date > $2)`,
		claimantID, at, id)
	if err != nil {
		return false, fmt.Errorf("tokens claim: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Redeem(ctx context.Context, tkn string, priorStatus int, at time.Time) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE tokens SET status=0, redeemed_date=$1 WHERE tkn=$2 AND status=$3`,
		at, tkn, priorStatus)
	if err != nil {
		return false, fmt.Errorf("tokens redeem: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]Token, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("tokens list: %w", err)
	}
	defer rows.Close()

	out := []Token{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tokens list: %w", err)
	}
	return out, nil
}

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var price, challenge *string
	err := row.Scan(&t.ID, &t.Tkn, &t.CompanyName, &t.IssuerID, &t.ClaimantID, &t.Status,
		&price, &challenge, &t.RequiredDistance, &t.CreatedAt, &t.ExpiresAt, &t.ClaimedAt, &t.RedeemedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tokens get: %w", err)
	}
	if price != nil {
		t.Price = *price
	}
	if challenge != nil {
		t.Challenge = *challenge
	}
	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
