package users

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-service/internal/apperr"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestInsertUser_NullCompanyForRunners(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users`).
		WithArgs("u1", "alice", "RUNNER", StatusActive, (*string)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewPostgresStore(mock).InsertUser(context.Background(), &User{
		ID: "u1", UserName: "alice", Type: TypeRunner, Status: StatusActive, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUser_UniqueViolation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewPostgresStore(mock).InsertUser(context.Background(), &User{ID: "u1", UserName: "alice"})
	assert.ErrorIs(t, err, apperr.ErrDuplicateUser)
}

func TestUserByName(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	company := "Acme"

	mock.ExpectQuery(`(?s)^SELECT\s+user_id,user_name,user_type,status,company_name,created_at\s+FROM\s+users\s+WHERE\s+user_name=\$1`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_name", "user_type", "status", "company_name", "created_at"}).
			AddRow("u1", "acme", "COMPANY", 1, &company, now))

	u, err := NewPostgresStore(mock).UserByName(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, TypeCompany, u.Type)
	assert.Equal(t, "Acme", u.CompanyName)
	assert.True(t, u.IsCompany())
}

func TestUserByID_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+user_id=\$1`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := NewPostgresStore(mock).UserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCredential(t *testing.T) {
	mock := newMock(t)
	code := "123456"
	exp := time.Now().Add(time.Minute)

	mock.ExpectQuery(`(?s)^SELECT\s+user_id,user_name,user_pass,otp_code,otp_expiry\s+FROM\s+user_creds`).
		WithArgs("u1", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "user_name", "user_pass", "otp_code", "otp_expiry"}).
			AddRow("u1", "alice", "$2a$hash", &code, &exp))

	c, err := NewPostgresStore(mock).Credential(context.Background(), "u1", "alice")
	require.NoError(t, err)
	require.NotNil(t, c.OTPCode)
	assert.Equal(t, "123456", *c.OTPCode)
	assert.Equal(t, "$2a$hash", c.PasswordHash)
}

func TestUpdatePassword_NoRow(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+user_creds\s+SET\s+user_pass=\$1`).
		WithArgs("hash", "u1", "alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewPostgresStore(mock).UpdatePassword(context.Background(), "u1", "alice", "hash")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResetPassword_ConditionalOnStoredCode(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`(?s)^UPDATE\s+user_creds\s+SET\s+user_pass=\$1,\s+otp_code=NULL,\s+otp_expiry=NULL\s+WHERE\s+user_id=\$2\s+AND\s+user_name=\$3\s+AND\s+otp_code=\$4`).
		WithArgs("hash", "u1", "alice", "123456").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE\s+user_creds`).
		WithArgs("hash", "u1", "alice", "123456").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	ok, err := store.ResetPassword(context.Background(), "u1", "alice", "123456", "hash")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ResetPassword(context.Background(), "u1", "alice", "123456", "hash")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
