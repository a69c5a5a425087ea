package companies

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
)

// Handler exposes company profile endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers company routes on an /api router.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/updateCompany", h.Upsert)
		r.Get("/company", h.Get)
		r.Get("/company/picture-upload", h.PictureUpload)
	})
}

type profileResponse struct {
	httpx.Envelope
	Company *Profile `json:"company"`
}

type uploadResponse struct {
	httpx.Envelope
	*PictureUpload
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req UpsertRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	prof, err := h.svc.Upsert(r.Context(), p, req)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, profileResponse{httpx.Success("Company updated"), prof})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	prof, err := h.svc.Get(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, profileResponse{httpx.Success("OK"), prof})
}

func (h *Handler) PictureUpload(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	up, err := h.svc.PictureUploadURL(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, uploadResponse{httpx.Success("OK"), up})
}
