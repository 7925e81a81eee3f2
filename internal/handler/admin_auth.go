package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/service"
)

// AdminAuthHandler serves admin login and account management.
type AdminAuthHandler struct {
	admins *service.AdminService
	tokens *auth.TokenManager
	logger *slog.Logger
}

func NewAdminAuthHandler(admins *service.AdminService, tokens *auth.TokenManager, logger *slog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{admins: admins, tokens: tokens, logger: logger}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	a, err := h.admins.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, "admin login", err)
		return
	}

	token, err := h.tokens.Issue(service.AdminIdentity(a))
	if err != nil {
		writeServiceError(w, h.logger, "issue admin token", err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC(),
		Admin:     a,
	})
}

func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Admin(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	a, err := h.admins.GetAdmin(r.Context(), caller.AdminID)
	if err != nil {
		writeServiceError(w, h.logger, "get admin", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AdminAuthHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.admins.ListAdmins(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list admins", err)
		return
	}
	writeJSON(w, http.StatusOK, admins)
}

func (h *AdminAuthHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AdminInput
	if !decode(w, r, &in) {
		return
	}

	a, err := h.admins.CreateAdmin(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "create admin", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
