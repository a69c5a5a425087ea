package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := Newf(InsufficientDistance, "required %.1f, have %.1f", 10.0, 4.5)

	assert.ErrorIs(t, err, ErrInsufficientDistance)
	assert.ErrorIs(t, fmt.Errorf("accept: %w", err), ErrInsufficientDistance)
	assert.NotErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "required 10.0, have 4.5", err.Message)
}

func TestWrap_KeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Internal, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error", err.Message)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, TokenExpired, CodeOf(ErrTokenExpired))
	assert.Equal(t, DuplicateUser, CodeOf(fmt.Errorf("register: %w", ErrDuplicateUser)))
	assert.Equal(t, Internal, CodeOf(errors.New("boom")))
}

func TestCodeMetadata(t *testing.T) {
	assert.Equal(t, "RATE_LIMITED", RateLimited.String())
	assert.Equal(t, http.StatusTooManyRequests, RateLimited.HTTPStatus())
	assert.Equal(t, "Too many requests. Please try again later.", RateLimited.Message())

	unknown := Code(9999)
	assert.Equal(t, "CODE_9999", unknown.String())
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus())
	assert.Equal(t, "internal error", unknown.Message())
}

func TestCodesAreUnique(t *testing.T) {
	seen := map[string]Code{}
	for c, info := range codes {
		if prev, dup := seen[info.name]; dup {
			t.Fatalf("name %s used by %d and %d", info.name, prev, c)
		}
		seen[info.name] = c
	}
}
