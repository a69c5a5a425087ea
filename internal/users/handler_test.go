package users

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

func newRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewHandler(e.svc, logging.Discard()).Routes)
	return r
}

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

func TestHandler_RegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	h := newRouter(e)

	rec := do(t, h, http.MethodPost, "/api/registerUser",
		`{"userName":"acme","userType":"COMPANY","companyName":"Acme","userPass":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var reg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, float64(0), reg["responseCode"])
	assert.Equal(t, "Registration successful", reg["responseDesc"])
	assert.NotEmpty(t, reg["session"])

	rec = do(t, h, http.MethodPost, "/api/login", `{"userName":"acme","userPass":"secret1","clientType":"WEB"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userType":"COMPANY"`)

	rec = do(t, h, http.MethodPost, "/api/registerUser",
		`{"userName":"acme","userType":"COMPANY","companyName":"Acme","userPass":"secret1"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":"DUPLICATE_USER"`)
}

func TestHandler_RegisterLongPasswordIsClientError(t *testing.T) {
	e := newEnv(t)
	h := newRouter(e)

	body := `{"userName":"runner","userType":"RUNNER","userPass":"` + strings.Repeat("p", 80) + `"}`
	rec := do(t, h, http.MethodPost, "/api/registerUser", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":"INVALID_REQUEST"`)
}

func TestHandler_LoginFailures(t *testing.T) {
	e := newEnv(t)
	e.register(t, "runner", TypeRunner, "", "secret2")
	h := newRouter(e)

	rec := do(t, h, http.MethodPost, "/api/login", `{"userName":"runner","userPass":"secret2","clientType":"WEB"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":"ACCESS_DENIED"`)

	rec = do(t, h, http.MethodPost, "/api/login", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_MeRequiresAuth(t *testing.T) {
	e := newEnv(t)
	e.register(t, "runner", TypeRunner, "", "secret2")
	u, _ := e.store.UserByName(t.Context(), "runner")
	h := newRouter(e)

	rec := do(t, h, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/me", "", &auth.Principal{UserID: u.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var me MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, u.ID, me.UserID)
	assert.Equal(t, TypeRunner, me.UserType)
	assert.Equal(t, "runner", me.UserName)
}

func TestHandler_ForgotPassword(t *testing.T) {
	e := newEnv(t)
	e.register(t, "runner", TypeRunner, "", "secret2")
	h := newRouter(e)

	rec := do(t, h, http.MethodPost, "/api/forgot-password/request", `{"userName":"runner"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message"`)

	code := e.mailer.last().code
	rec = do(t, h, http.MethodPost, "/api/forgot-password/verify", `{"userName":"runner","otp":"`+code+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/forgot-password/reset", `{"userName":"runner","otp":"`+code+`","newPassword":"brandnew"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password has been reset")
}
