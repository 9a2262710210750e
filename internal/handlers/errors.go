package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/metrics"
	"github.com/crucial707/auditlog-admin/internal/middleware"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// ErrorResponse defines standard error payload
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message, Fields: fields})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// adminRequest is the admin's view of r: current user and route name.
func adminRequest(r *http.Request) *admin.Request {
	return admin.NewRequest(r, middleware.CurrentUser(r.Context()))
}

func urlID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// permissionDenied answers 403 and counts the refusal under the route name.
func permissionDenied(w http.ResponseWriter, r *http.Request) {
	name, _ := admin.URLName(r.Context())
	metrics.IncPermissionDenied(name)
	JSONError(w, "permission denied", http.StatusForbidden)
}

// adminError maps admin and repo errors to responses.
func adminError(w http.ResponseWriter, r *http.Request, err error) {
	var lookup *admin.BadLookupError
	switch {
	case errors.As(err, &lookup):
		JSONValidationError(w, "invalid lookup", map[string]string{lookup.Parameter: lookup.Value}, http.StatusBadRequest)
	case errors.Is(err, admin.ErrPermissionDenied):
		permissionDenied(w, r)
	case errors.Is(err, repo.ErrNotFound):
		JSONError(w, "not found", http.StatusNotFound)
	default:
		slog.Error("admin request failed",
			"path", r.URL.Path,
			"cid", middleware.GetCorrelationID(r.Context()),
			"err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}
