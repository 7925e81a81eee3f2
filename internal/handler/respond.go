// Package handler exposes the family register over JSON HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parishhub/parish/internal/service"
	"github.com/parishhub/parish/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorBody{Message: verr.Error(), Error: verr})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors to responses. Unexpected errors are
// logged with op and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicatePhone):
		writeError(w, http.StatusBadRequest, "A family with this phone number is already registered")
	case errors.Is(err, service.ErrDuplicateRegisterNo):
		writeError(w, http.StatusBadRequest, "A family with this register number already exists")
	case errors.Is(err, service.ErrAdminExists):
		writeError(w, http.StatusBadRequest, "An admin with this email already exists")
	case errors.Is(err, service.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrFamilyInactive):
		writeError(w, http.StatusForbidden, "Family account is inactive")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "You cannot modify another family")
	case errors.Is(err, service.ErrFamilyNotFound):
		writeError(w, http.StatusNotFound, "Family not found")
	case errors.Is(err, service.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "Member not found")
	case errors.Is(err, service.ErrAdminNotFound):
		writeError(w, http.StatusNotFound, "Admin not found")
	default:
		logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
