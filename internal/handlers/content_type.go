package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/metrics"
	"github.com/crucial707/auditlog-admin/internal/middleware"
	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// ContentTypeStore is the content type persistence the handler needs.
type ContentTypeStore interface {
	List(ctx context.Context) ([]models.ContentType, error)
	GetByID(ctx context.Context, id int) (*models.ContentType, error)
	Delete(ctx context.Context, id int) error
}

// EntryCounter counts log entries that reference a content type.
type EntryCounter interface {
	CountByContentType(ctx context.Context, contentTypeID int) (int, error)
}

// ==========================
// ContentTypeHandler
// ==========================
type ContentTypeHandler struct {
	Repo       ContentTypeStore
	Entries    EntryCounter
	Admin      *admin.ModelAdmin
	LogEntries *admin.LogEntryAdmin
}

// ==========================
// List Content Types
// ==========================
func (h *ContentTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.Admin.HasViewPermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}
	list, err := h.Repo.List(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": list,
		"total": len(list),
	})
}

// ==========================
// Delete Content Type (cascades to log entries)
// ==========================
// The log entry admin is asked for delete permission on behalf of this route,
// which is how entries become deletable only as a cascade.
func (h *ContentTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid content type id", http.StatusBadRequest)
		return
	}
	req := adminRequest(r)
	ct, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	if !h.Admin.HasDeletePermission(req, ct) {
		permissionDenied(w, r)
		return
	}

	related, err := h.Entries.CountByContentType(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	if related > 0 && !h.LogEntries.HasDeletePermission(req, nil) {
		name, _ := admin.URLName(r.Context())
		metrics.IncPermissionDenied(name)
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"error": "deleting this content type would require deleting protected log entries",
			"protected": map[string]int{
				h.LogEntries.VerboseName: related,
			},
		})
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			JSONError(w, "not found", http.StatusNotFound)
			return
		}
		adminError(w, r, err)
		return
	}
	metrics.AddEntriesFlushed("cascade", int64(related))
	if related > 0 {
		h.LogEntries.InvalidateFilters()
	}
	slog.Info("content type deleted",
		"content_type", ct.String(),
		"log_entries", related,
		"cid", middleware.GetCorrelationID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
