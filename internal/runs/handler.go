package runs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
)

// Handler exposes run ledger endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers run routes on an /api router. All of them need a session.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/run", h.Record)
		r.Get("/runs", h.List)
		r.Get("/runs/total-distance", h.Total)
	})
}

type runResponse struct {
	httpx.Envelope
	Run *Run `json:"run"`
}

type listResponse struct {
	httpx.Envelope
	Runs []Run `json:"runs"`
}

type totalResponse struct {
	httpx.Envelope
	TotalDistance float64 `json:"totalDistance"`
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req RecordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	run, err := h.svc.Record(r.Context(), p, req)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, runResponse{httpx.Success("Run recorded"), run})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	list, err := h.svc.List(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, listResponse{httpx.Success("OK"), list})
}

func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	total, err := h.svc.TotalDistance(r.Context(), p.UserID)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, totalResponse{httpx.Success("OK"), total})
}
