package handler

import (
	"log/slog"
	"net/http"

	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/service"
)

// FamilyUnitHandler serves the public directory and a family's own member
// edits.
type FamilyUnitHandler struct {
	families *service.FamilyService
	logger   *slog.Logger
}

func NewFamilyUnitHandler(families *service.FamilyService, logger *slog.Logger) *FamilyUnitHandler {
	return &FamilyUnitHandler{families: families, logger: logger}
}

// List serves the public directory. It is always masked, whoever asks.
func (h *FamilyUnitHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.FamilyFilter{ParishUnit: r.URL.Query().Get("parishUnit")}

	families, err := h.families.ListFamilies(r.Context(), nil, filter)
	if err != nil {
		writeServiceError(w, h.logger, "list families", err)
		return
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyUnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid family id")
		return
	}

	f, err := h.families.GetFamily(r.Context(), nil, id)
	if err != nil {
		writeServiceError(w, h.logger, "get family", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FamilyUnitHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var in service.MemberInput
	if !decode(w, r, &in) {
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, _, err := h.families.AddMember(r.Context(), caller, auth.FamilyID(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.logger, "add member", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FamilyUnitHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var patch service.MemberPatch
	if !decode(w, r, &patch) {
		return
	}

	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.UpdateMember(r.Context(), caller, auth.FamilyID(r.Context()), r.PathValue("memberId"), patch)
	if err != nil {
		writeServiceError(w, h.logger, "update member", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *FamilyUnitHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	f, err := h.families.RemoveMember(r.Context(), caller, auth.FamilyID(r.Context()), r.PathValue("memberId"))
	if err != nil {
		writeServiceError(w, h.logger, "remove member", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
