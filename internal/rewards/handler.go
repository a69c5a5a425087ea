package rewards

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/apperr"
	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
)

// Handler exposes reward token endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers token and challenge routes on an /api router.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/token/generate", h.Generate)
		r.Post("/token/redeem", h.Redeem)
		r.Get("/tokens", h.ListCompany)
		r.Get("/challenges", h.ListChallenges)
		r.Get("/challenges/claimed", h.ListClaimed)
		r.Post("/challenges/{id}/accept", h.Accept)
	})
}

type generateResponse struct {
	httpx.Envelope
	Tokens []string `json:"tokens"`
}

type tokenResponse struct {
	httpx.Envelope
	Token *Token `json:"token"`
}

type tokensResponse struct {
	httpx.Envelope
	Tokens []Token `json:"tokens"`
}

type challengesResponse struct {
	httpx.Envelope
	Challenges []Challenge `json:"challenges"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req GenerateRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	tokens, err := h.svc.Generate(r.Context(), p, req)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, generateResponse{httpx.Success("Tokens generated"), tokens})
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req RedeemRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.Redeem(r.Context(), p, req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, httpx.Success("Token redeemed"))
}

func (h *Handler) ListCompany(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	tokens, err := h.svc.ListCompanyTokens(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, tokensResponse{httpx.Success("OK"), tokens})
}

func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActiveChallenges(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, challengesResponse{httpx.Success("OK"), list})
}

func (h *Handler) ListClaimed(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	tokens, err := h.svc.ListClaimedTokens(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, tokensResponse{httpx.Success("OK"), tokens})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, r, h.log, apperr.Newf(apperr.InvalidRequest, "challenge id must be a positive integer"))
		return
	}
	t, err := h.svc.AcceptChallenge(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, tokenResponse{httpx.Success("Challenge accepted"), t})
}
