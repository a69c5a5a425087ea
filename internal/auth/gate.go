// Package auth resolves the X-Auth-Token header into a request principal.
package auth

import (
	"context"
	"net/http"

	"runner-service/internal/apperr"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
)

// HeaderName carries the opaque session token.
const HeaderName = "X-Auth-Token"

// Principal is the authenticated caller. Handlers read it once and pass it
// to services explicitly.
type Principal struct {
	UserID string
	Token  string
}

// SessionResolver maps a session token to its owner's id.
// ok is false when the session is unknown, inactive or expired.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (userID string, ok bool, err error)
}

type ctxKey string

const principalCtxKey ctxKey = "auth_principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// FromContext returns the principal attached by Gate.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}

// Gate attaches a Principal when the request carries a valid session token.
// It never rejects a request; RequireAuth does that for protected routes.
func Gate(resolver SessionResolver, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := r.Header.Get(HeaderName); token != "" {
				userID, ok, err := resolver.Resolve(r.Context(), token)
				switch {
				case err != nil:
					log.Warn(r.Context(), "session lookup failed", "error", err)
				case ok:
					r = r.WithContext(WithPrincipal(r.Context(), Principal{UserID: userID, Token: token}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that have no principal in context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.Fail(w, r, nil, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
