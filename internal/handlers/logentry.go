package handlers

import (
	"net/http"

	"github.com/crucial707/auditlog-admin/internal/admin"
)

// ==========================
// LogEntryHandler
// ==========================
type LogEntryHandler struct {
	Admin *admin.LogEntryAdmin
}

// ==========================
// Changelist
// ==========================
func (h *LogEntryHandler) Changelist(w http.ResponseWriter, r *http.Request) {
	res, err := h.Admin.Changelist(r.Context(), adminRequest(r))
	if err != nil {
		adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ==========================
// Filter Choices
// ==========================
func (h *LogEntryHandler) Filters(w http.ResponseWriter, r *http.Request) {
	req := adminRequest(r)
	if !h.Admin.HasViewPermission(req, nil) {
		permissionDenied(w, r)
		return
	}
	specs, err := h.Admin.FilterSpecs(r.Context(), req)
	if err != nil {
		adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

// ==========================
// Detail (read-only change view)
// ==========================
func (h *LogEntryHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid log entry id", http.StatusBadRequest)
		return
	}
	res, err := h.Admin.Detail(r.Context(), adminRequest(r), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ==========================
// History
// ==========================
func (h *LogEntryHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid log entry id", http.StatusBadRequest)
		return
	}
	req := adminRequest(r)
	res, err := h.Admin.History(r.Context(), req, id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	entries := res.Entries

	d := h.Admin.Display(req)
	items := make([]admin.ChangelistRow, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		row := admin.ChangelistRow{ID: e.ID}
		for _, name := range h.Admin.ListDisplay {
			row.Cells = append(row.Cells, h.Admin.Cell(d, name, e))
		}
		items = append(items, row)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"items":  items,
		"total":  res.Total,
		"limit":  res.Limit,
		"offset": res.Offset,
	})
}

// ==========================
// Add / Change / Delete
// ==========================
// Entries are written only by the recorder and removed only by cascades and
// retention, so these routes always end at a permission gate.

func (h *LogEntryHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !h.Admin.HasAddPermission(adminRequest(r)) {
		permissionDenied(w, r)
		return
	}
	JSONError(w, "not implemented", http.StatusNotImplemented)
}

func (h *LogEntryHandler) Change(w http.ResponseWriter, r *http.Request) {
	if _, ok := urlID(r); !ok {
		JSONError(w, "invalid log entry id", http.StatusBadRequest)
		return
	}
	if !h.Admin.HasChangePermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}
	JSONError(w, "not implemented", http.StatusNotImplemented)
}

func (h *LogEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := urlID(r); !ok {
		JSONError(w, "invalid log entry id", http.StatusBadRequest)
		return
	}
	if !h.Admin.HasDeletePermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}
	JSONError(w, "not implemented", http.StatusNotImplemented)
}
