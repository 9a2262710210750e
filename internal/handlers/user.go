package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/auditlog"
	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo     *repo.UserRepo
	Admin    *admin.ModelAdmin
	Recorder *auditlog.Recorder
}

type userInput struct {
	Username    string   `json:"username"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active"`
}

func (in *userInput) validate(creating bool) map[string]string {
	fields := make(map[string]string)
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		fields["username"] = "required"
	}
	if in.Role == "" {
		in.Role = models.RoleViewer
	}
	if in.Role != models.RoleViewer && in.Role != models.RoleAdmin {
		fields["role"] = "must be viewer or admin"
	}
	if creating && in.Role == models.RoleAdmin && in.Password == "" {
		fields["password"] = "required for admin"
	}
	for _, p := range in.Permissions {
		if !strings.Contains(p, ".") {
			fields["permissions"] = "codenames look like app_label.action_model"
			break
		}
	}
	return fields
}

func (in *userInput) repoInput() repo.UserInput {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return repo.UserInput{
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Password:    in.Password,
		Role:        in.Role,
		Permissions: in.Permissions,
		IsActive:    active,
	}
}

func (h *UserHandler) record(r *http.Request, action models.Action, u *models.User, before, after map[string]string) {
	if h.Recorder == nil {
		return
	}
	_, err := h.Recorder.Record(r.Context(), auditlog.MetaFromRequest(r), auditlog.Event{
		AppLabel:   h.Admin.AppLabel,
		Model:      h.Admin.ModelName,
		ObjectPK:   strconv.Itoa(u.ID),
		ObjectRepr: u.String(),
		Action:     action,
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Error("record user change", "user_id", u.ID, "action", action.String(), "err", err)
	}
}

// ==========================
// Create User (role defaults to viewer; admin requires password)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.Admin.HasAddPermission(adminRequest(r)) {
		permissionDenied(w, r)
		return
	}
	var input userInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if fields := input.validate(true); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Repo.Create(r.Context(), input.repoInput())
	if err != nil {
		if repo.IsUniqueViolation(err) {
			JSONValidationError(w, "validation failed", map[string]string{"username": "already taken"}, http.StatusConflict)
			return
		}
		slog.Error("create user", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	h.record(r, models.ActionCreate, user, nil, user.Fields())

	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.Admin.HasViewPermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 500 {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}
	users, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	total, err := h.Repo.Count(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ==========================
// Get User
// ==========================
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if !h.Admin.HasViewPermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Update User
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if !h.Admin.HasChangePermission(adminRequest(r), nil) {
		permissionDenied(w, r)
		return
	}

	var input userInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if fields := input.validate(false); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	before, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	user, err := h.Repo.Update(r.Context(), id, input.repoInput())
	if err != nil {
		if repo.IsUniqueViolation(err) {
			JSONValidationError(w, "validation failed", map[string]string{"username": "already taken"}, http.StatusConflict)
			return
		}
		adminError(w, r, err)
		return
	}
	h.record(r, models.ActionUpdate, user, before.Fields(), user.Fields())

	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Delete User
// ==========================
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	req := adminRequest(r)
	if !h.Admin.HasDeletePermission(req, nil) {
		permissionDenied(w, r)
		return
	}
	if req.User != nil && req.User.ID == id {
		JSONError(w, "cannot delete the signed-in user", http.StatusBadRequest)
		return
	}

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		adminError(w, r, err)
		return
	}
	h.record(r, models.ActionDelete, user, user.Fields(), nil)

	w.WriteHeader(http.StatusNoContent)
}
