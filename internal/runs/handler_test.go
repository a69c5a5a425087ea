package runs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-service/internal/auth"
	"runner-service/internal/logging"
)

func do(t *testing.T, h http.Handler, method, path, body string, p *auth.Principal) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RecordListTotal(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, logging.Discard()).Routes)
	p := &auth.Principal{UserID: "u1", Token: "tok"}

	rec := do(t, r, http.MethodPost, "/api/run", `{"distance":4.2,"route":{"pts":[[1,2]]}}`, p)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ResponseCode int `json:"responseCode"`
		Run          Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 0, created.ResponseCode)
	assert.JSONEq(t, `{"pts":[[1,2]]}`, string(created.Run.Route))

	rec = do(t, r, http.MethodGet, "/api/runs", "", p)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"distance":4.2`)

	rec = do(t, r, http.MethodGet, "/api/runs/total-distance", "", p)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalDistance":4.2`)
}

func TestHandler_RejectsNegativeDistance(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, logging.Discard()).Routes)

	rec := do(t, r, http.MethodPost, "/api/run", `{"distance":-1}`, &auth.Principal{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":"INVALID_REQUEST"`)
}

func TestHandler_RequiresSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	r.Route("/api", NewHandler(svc, logging.Discard()).Routes)

	rec := do(t, r, http.MethodGet, "/api/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
