package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"runner-service/internal/auth"
	"runner-service/internal/httpx"
	"runner-service/internal/logging"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	svc *Service
	log logging.Logger
}

// NewHandler wires a handler to the account service.
func NewHandler(svc *Service, log logging.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers account routes on an /api router.
func (h *Handler) Routes(r chi.Router) {
	// Public
	r.Post("/registerUser", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password/request", h.RequestPasswordReset)
	r.Post("/forgot-password/verify", h.VerifyOTP)
	r.Post("/forgot-password/reset", h.ResetPassword)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/me", h.Me)
		r.Post("/logout", h.Logout)
		r.Post("/updateUserCred", h.UpdateCredential)
	})
}

type sessionResponse struct {
	httpx.Envelope
	Session  string `json:"session"`
	UserType Type   `json:"userType,omitempty"`
}

type messageResponse struct {
	httpx.Envelope
	Message string `json:"message"`
}

// MeResponse is the current-user payload.
type MeResponse struct {
	httpx.Envelope
	UserID      string `json:"userId"`
	UserType    Type   `json:"userType"`
	UserName    string `json:"userName"`
	CompanyName string `json:"companyName,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{
		Envelope: httpx.Success("Registration successful"),
		Session:  token,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, sessionResponse{
		Envelope: httpx.Success("Login successful"),
		Session:  res.Session,
		UserType: res.UserType,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	if err := h.svc.Logout(r.Context(), p); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, httpx.Success("Logged out"))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	u, err := h.svc.Current(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, MeResponse{
		Envelope:    httpx.Success("OK"),
		UserID:      u.ID,
		UserType:    u.Type,
		UserName:    u.UserName,
		CompanyName: u.CompanyName,
	})
}

func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	var req UpdateCredentialRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.UpdateCredential(r.Context(), p, req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, httpx.Success("Successfully updated password"))
}

func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, messageResponse{httpx.Success("OK"), "A reset code has been sent"})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.VerifyOTP(r.Context(), req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, messageResponse{httpx.Success("OK"), "Code verified"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpx.Fail(w, r, h.log, err)
		return
	}
	httpx.OK(w, messageResponse{httpx.Success("OK"), "Password has been reset"})
}
