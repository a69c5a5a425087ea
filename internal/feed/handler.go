package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
	"runner-service/internal/users"
	"runner-service/pkg/jwt"
)

// Accounts resolves callers.
type Accounts interface {
	Get(ctx context.Context, userID string) (*users.User, error)
}

// Handler issues feed tickets and serves the feed socket.
type Handler struct {
	hub       *Hub
	accounts  Accounts
	ticketTTL time.Duration
	log       logging.Logger
}

func NewHandler(hub *Hub, accounts Accounts, ticketTTL time.Duration, log logging.Logger) *Handler {
	if ticketTTL <= 0 {
		ticketTTL = time.Minute
	}
	return &Handler{hub: hub, accounts: accounts, ticketTTL: ticketTTL, log: log}
}

// Routes registers the ticket endpoint on an /api router.
func (h *Handler) Routes(r chi.Router) {
	r.With(auth.RequireAuth).Get("/feed/ticket", h.Ticket)
}

// SocketRoutes registers the socket endpoint on the /ws router. Browsers
// cannot set headers on a websocket handshake, so it authenticates with a
// ticket in the query string instead of a session.
func (h *Handler) SocketRoutes(r chi.Router) {
	r.Get("/feed", h.Socket)
}

type ticketResponse struct {
	httpx.Envelope
	Ticket string `json:"ticket"`
}

func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	u, err := h.accounts.Get(r.Context(), p.UserID)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if !u.IsCompany() {
		httpx.Fail(w, r, h.log, apperr.ErrNotCompanyUser)
		return
	}
	ticket, err := jwt.Generate(u.ID, u.CompanyName, h.ticketTTL)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, ticketResponse{httpx.Success("OK"), ticket})
}

func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.Validate(r.URL.Query().Get("ticket"))
	if err != nil || claims.CompanyName == "" {
		httpx.Fail(w, r, nil, apperr.ErrUnauthenticated)
		return
	}
	h.hub.Serve(w, r, claims.CompanyName)
}
