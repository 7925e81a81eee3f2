package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/export"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/service"
)

// AdminFamilyHandler serves family management for admins. Responses are
// never masked.
type AdminFamilyHandler struct {
	families *service.FamilyService
	logger   *slog.Logger
}

func NewAdminFamilyHandler(families *service.FamilyService, logger *slog.Logger) *AdminFamilyHandler {
	return &AdminFamilyHandler{families: families, logger: logger}
}

func adminFilter(r *http.Request) model.FamilyFilter {
	q := r.URL.Query()
	active, _ := strconv.ParseBool(q.Get("active"))
	return model.FamilyFilter{
		ParishUnit: q.Get("parishUnit"),
		Search:     q.Get("search"),
		ActiveOnly: active,
	}
}

func (h *AdminFamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	families, err := h.families.ListFamilies(r.Context(), caller, adminFilter(r))
	if err != nil {
		writeServiceError(w, h.logger, "list families", err)
		return
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *AdminFamilyHandler) Export(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.All(r.Context(), adminFilter(r))
	if err != nil {
		writeServiceError(w, h.logger, "load families for export", err)
		return
	}

	data, err := export.Families(families)
	if err != nil {
		writeServiceError(w, h.logger, "export families", err)
		return
	}

	filename := fmt.Sprintf("family-register-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *AdminFamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.GetFamily(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, h.logger, "get family", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *AdminFamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.FamilyInput
	if !decode(w, r, &in) {
		return
	}

	f, err := h.families.CreateFamily(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "create family", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *AdminFamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}
	var patch service.FamilyPatch
	if !decode(w, r, &patch) {
		return
	}

	f, err := h.families.UpdateFamily(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, h.logger, "update family", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *AdminFamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}

	if err := h.families.DeleteFamily(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete family", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Family deleted"})
}

func (h *AdminFamilyHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}
	var req struct {
		Password string `json:"password" validate:"required,min=6,max=72"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := h.families.ResetPassword(r.Context(), id, req.Password); err != nil {
		writeServiceError(w, h.logger, "reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}

func (h *AdminFamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}
	var in service.MemberInput
	if !decode(w, r, &in) {
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, _, err := h.families.AddMember(r.Context(), caller, id, in)
	if err != nil {
		writeServiceError(w, h.logger, "add member", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *AdminFamilyHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}
	var patch service.MemberPatch
	if !decode(w, r, &patch) {
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.UpdateMember(r.Context(), caller, id, r.PathValue("memberId"), patch)
	if err != nil {
		writeServiceError(w, h.logger, "update member", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *AdminFamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.RemoveMember(r.Context(), caller, id, r.PathValue("memberId"))
	if err != nil {
		writeServiceError(w, h.logger, "remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
