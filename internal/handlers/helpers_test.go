package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/auditlog-admin/internal/admin"
	"github.com/crucial707/auditlog-admin/internal/middleware"
	"github.com/crucial707/auditlog-admin/internal/models"
)

var userRowColumns = []string{"id", "username", "first_name", "last_name", "email", "password_hash", "role", "permissions", "is_active"}

var superuser = &models.User{ID: 1, Username: "root", Role: models.RoleAdmin, IsActive: true}

func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	return r
}

// asUser attaches u to r the way LoadUser does, and names the route when urlName is set.
func asUser(r *http.Request, u *models.User, urlName string) *http.Request {
	ctx := middleware.WithUser(r.Context(), u)
	if urlName != "" {
		ctx = admin.WithURLName(ctx, urlName)
	}
	return r.WithContext(ctx)
}
