package handlers

import (
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/auditlog"
	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

func newUserHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	h := &UserHandler{
		Repo:     repo.NewUserRepo(db),
		Admin:    admin.NewUserAdmin(),
		Recorder: auditlog.NewRecorder(repo.NewLogEntryRepo(db), repo.NewContentTypeRepo(db)),
	}
	return h, mock, func() { db.Close() }
}

func expectRecorded(mock sqlmock.Sqlmock, entryID int) {
	mock.ExpectQuery(`INSERT INTO content_types`).
		WithArgs("auth", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_label", "model"}).AddRow(1, "auth", "user"))
	mock.ExpectQuery(`INSERT INTO auditlog_logentry`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(entryID, time.Now()))
}

func TestUserHandler_CreateUser(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO users \(username, first_name, last_name, email, password_hash, role, permissions, is_active\)`).
		WithArgs("charlie", "", "", "", nil, "viewer", "{}", true).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{}", true))
	expectRecorded(mock, 10)

	body, _ := json.Marshal(map[string]string{"username": "charlie"})
	req := asUser(requestWithChiURLParams("POST", "/admin/auth/user/", body, nil), superuser, "auth_user_add")
	rr := httptest.NewRecorder()
	h.CreateUser(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateUser status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	var user struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user.ID != 3 || user.Username != "charlie" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_CreateUser_BadRequest(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	body, _ := json.Marshal(map[string]string{"username": "", "role": "owner"})
	req := asUser(requestWithChiURLParams("POST", "/admin/auth/user/", body, nil), superuser, "")
	rr := httptest.NewRecorder()
	h.CreateUser(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("CreateUser status: got %d, want 400", rr.Code)
	}
	var out ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Fields["username"] == "" || out.Fields["role"] == "" {
		t.Errorf("expected username and role field errors, got %+v", out.Fields)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_CreateUser_Forbidden(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	viewer := &models.User{ID: 2, Username: "vic", Role: models.RoleViewer, IsActive: true,
		Permissions: []string{"auth.view_user"}}
	body, _ := json.Marshal(map[string]string{"username": "mallory"})
	req := asUser(requestWithChiURLParams("POST", "/admin/auth/user/", body, nil), viewer, "auth_user_add")
	rr := httptest.NewRecorder()
	h.CreateUser(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("CreateUser status: got %d, want 403", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_ListUsers(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username, first_name, last_name, email, COALESCE\(password_hash, ''\), role, permissions, is_active FROM users ORDER BY id`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice", "", "", "", "", "admin", "{}", true).
			AddRow(2, "bob", "", "", "", "", "viewer", `{"auditlog.view_logentry"}`, true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	req := asUser(httptest.NewRequest("GET", "/admin/auth/user/", nil), superuser, "auth_user_changelist")
	rr := httptest.NewRecorder()
	h.ListUsers(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("ListUsers status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	var out struct {
		Items []struct {
			ID          int      `json:"id"`
			Username    string   `json:"username"`
			Permissions []string `json:"permissions"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Items) != 2 || out.Items[0].Username != "alice" || out.Items[1].Username != "bob" || out.Total != 2 {
		t.Errorf("unexpected list: %+v", out)
	}
	if len(out.Items[1].Permissions) != 1 || out.Items[1].Permissions[0] != "auditlog.view_logentry" {
		t.Errorf("unexpected permissions: %+v", out.Items[1].Permissions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	req := asUser(requestWithChiURLParams("GET", "/admin/auth/user/99/change/", nil, map[string]string{"id": "99"}), superuser, "")
	rr := httptest.NewRecorder()
	h.GetUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("GetUser status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_RecordsChanges(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "c@old", "", "viewer", "{}", true))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "c@new", "", "viewer", "{}", true))
	expectRecorded(mock, 11)

	body, _ := json.Marshal(map[string]string{"username": "charlie", "email": "c@new"})
	req := asUser(requestWithChiURLParams("PUT", "/admin/auth/user/3/change/", body, map[string]string{"id": "3"}), superuser, "auth_user_change")
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateUser status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// changesArg matches the changes column of an inserted log entry.
type changesArg struct {
	field    string
	from, to string
}

func (c changesArg) Match(v driver.Value) bool {
	raw, ok := v.(string)
	if !ok {
		return false
	}
	var changes map[string][2]*string
	if err := json.Unmarshal([]byte(raw), &changes); err != nil {
		return false
	}
	pair, ok := changes[c.field]
	return ok && pair[0] != nil && pair[1] != nil && *pair[0] == c.from && *pair[1] == c.to
}

func TestUserHandler_UpdateUser_RecordsPermissionGrant(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{auditlog.view_logentry}", true))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{auditlog.view_logentry,auditlog.delete_logentry}", true))
	mock.ExpectQuery(`INSERT INTO content_types`).
		WithArgs("auth", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_label", "model"}).AddRow(1, "auth", "user"))
	mock.ExpectQuery(`INSERT INTO auditlog_logentry`).
		WithArgs(1, "3", sqlmock.AnyArg(), "charlie", nil, int(models.ActionUpdate),
			changesArg{field: "permissions", from: "auditlog.view_logentry", to: "auditlog.delete_logentry, auditlog.view_logentry"},
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(13, time.Now()))

	body, _ := json.Marshal(map[string]interface{}{
		"username":    "charlie",
		"permissions": []string{"auditlog.view_logentry", "auditlog.delete_logentry"},
	})
	req := asUser(requestWithChiURLParams("PUT", "/admin/auth/user/3/change/", body, map[string]string{"id": "3"}), superuser, "auth_user_change")
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateUser status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_UpdateUser_NoChangeSkipsEntry(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{}", true))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{}", true))

	body, _ := json.Marshal(map[string]string{"username": "charlie"})
	req := asUser(requestWithChiURLParams("PUT", "/admin/auth/user/3/change/", body, map[string]string{"id": "3"}), superuser, "auth_user_change")
	rr := httptest.NewRecorder()
	h.UpdateUser(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateUser status: got %d, want 200", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_DeleteUser(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	mock.ExpectQuery(`SELECT id, username`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "charlie", "", "", "", "", "viewer", "{}", true))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecorded(mock, 12)

	req := asUser(requestWithChiURLParams("POST", "/admin/auth/user/3/delete/", nil, map[string]string{"id": "3"}), superuser, "auth_user_delete")
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("DeleteUser status: got %d, want 204", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserHandler_DeleteUser_Self(t *testing.T) {
	h, mock, done := newUserHandler(t)
	defer done()

	req := asUser(requestWithChiURLParams("POST", "/admin/auth/user/1/delete/", nil, map[string]string{"id": "1"}), superuser, "auth_user_delete")
	rr := httptest.NewRecorder()
	h.DeleteUser(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("DeleteUser status: got %d, want 400", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
