package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-service/internal/apperr"
	"runner-service/internal/logging"
)

func TestFail_DomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/token/redeem", nil)

	Fail(rec, req, logging.Discard(), apperr.ErrTokenExpired)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, int(apperr.TokenExpired), env.ResponseCode)
	assert.Equal(t, "Token is expired!", env.ResponseDesc)
	assert.Equal(t, "TOKEN_EXPIRED", env.ErrorCode)
}

func TestFail_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)

	Fail(rec, req, logging.Discard(), errors.New("pq: relation \"runs\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Contains(t, rec.Body.String(), `"errorCode":"INTERNAL"`)
}

func TestOK_FlattensEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, struct {
		Envelope
		Session string `json:"session"`
	}{Success("Login successful"), "abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"responseCode":0,"responseDesc":"Login successful","session":"abc"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		Distance float64 `json:"distance"`
	}

	cases := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"valid", `{"distance":3.5}`, ""},
		{"empty", ``, "request body is required"},
		{"syntax", `{"distance":`, "invalid body"},
		{"type", `{"distance":"far"}`, `field "distance" has the wrong type`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload))
			var b body
			err := Decode(rec, req, &b)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 3.5, b.Distance)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
