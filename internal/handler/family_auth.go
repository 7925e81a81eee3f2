package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/family"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/service"
)

type authResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Family    *model.FamilyUnit `json:"family,omitempty"`
	Admin     *model.Admin      `json:"admin,omitempty"`
}

// FamilyAuthHandler serves family registration, login and self-service.
type FamilyAuthHandler struct {
	families *service.FamilyService
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

func NewFamilyAuthHandler(families *service.FamilyService, tokens *auth.TokenManager, logger *slog.Logger) *FamilyAuthHandler {
	return &FamilyAuthHandler{families: families, tokens: tokens, logger: logger}
}

func (h *FamilyAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.FamilyInput
	if !decode(w, r, &in) {
		return
	}

	f, err := h.families.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "register family", err)
		return
	}
	h.respondWithToken(w, http.StatusCreated, f)
}

func (h *FamilyAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	f, err := h.families.Authenticate(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, "family login", err)
		return
	}
	h.respondWithToken(w, http.StatusOK, f)
}

func (h *FamilyAuthHandler) respondWithToken(w http.ResponseWriter, status int, f *model.FamilyUnit) {
	token, err := h.tokens.Issue(model.FamilyIdentity{FamilyID: f.ID})
	if err != nil {
		writeServiceError(w, h.logger, "issue family token", err)
		return
	}
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC(),
		Family:    family.View(f, family.AudienceAdmin),
	})
}

func (h *FamilyAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.GetFamily(r.Context(), caller, auth.FamilyID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "get own family", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FamilyAuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfilePatch
	if !decode(w, r, &patch) {
		return
	}

	f, err := h.families.UpdateProfile(r.Context(), auth.FamilyID(r.Context()), patch)
	if err != nil {
		writeServiceError(w, h.logger, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, family.View(f, family.AudienceAdmin))
}

func (h *FamilyAuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
	}
	if !decode(w, r, &req) {
		return
	}

	err := h.families.ChangePassword(r.Context(), auth.FamilyID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, h.logger, "change password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
