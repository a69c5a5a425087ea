// Package home serves the dashboard summary shown after login.
package home

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
	"runner-service/internal/rewards"
	"runner-service/internal/users"
)

type Accounts interface {
	Get(ctx context.Context, userID string) (*users.User, error)
}

type Distances interface {
	TotalDistance(ctx context.Context, userID string) (float64, error)
}

type Tokens interface {
	ListCompanyTokens(ctx context.Context, p auth.Principal) ([]rewards.Token, error)
	ListClaimedTokens(ctx context.Context, p auth.Principal) ([]rewards.Token, error)
}

// Summary is the home payload. Companies see their issued tokens and runners
// see the tokens they have claimed.
type Summary struct {
	User          *users.User     `json:"user"`
	TotalDistance float64         `json:"totalDistance"`
	Tokens        []rewards.Token `json:"tokens"`
}

type Handler struct {
	accounts  Accounts
	distances Distances
	tokens    Tokens
	log       logging.Logger
}

func NewHandler(accounts Accounts, distances Distances, tokens Tokens, log logging.Logger) *Handler {
	return &Handler{accounts: accounts, distances: distances, tokens: tokens, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(auth.RequireAuth).Get("/home", h.Home)
}

// Summarize builds the caller's home view.
func (h *Handler) Summarize(ctx context.Context, p auth.Principal) (*Summary, error) {
	u, err := h.accounts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	s := &Summary{User: u, Tokens: []rewards.Token{}}

	if u.IsCompany() {
		s.Tokens, err = h.tokens.ListCompanyTokens(ctx, p)
		return s, err
	}
	if s.TotalDistance, err = h.distances.TotalDistance(ctx, u.ID); err != nil {
		return nil, err
	}
	s.Tokens, err = h.tokens.ListClaimedTokens(ctx, p)
	return s, err
}

type homeResponse struct {
	httpx.Envelope
	*Summary
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	s, err := h.Summarize(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, homeResponse{httpx.Success("OK"), s})
}
