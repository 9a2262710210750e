package admin

import (
	"fmt"
	"strings"
)

// ModelAdmin carries the options shared by every model admin and the
// base permission checks that overrides may delegate to.
type ModelAdmin struct {
	AppLabel    string
	ModelName   string
	VerboseName string

	// FieldVerboseNames labels fields in change messages.
	FieldVerboseNames map[string]string

	site *Site
}

// Opts returns the model options; types embedding ModelAdmin satisfy Registered through it.
func (m *ModelAdmin) Opts() *ModelAdmin { return m }

// Label is "app_label.model".
func (m *ModelAdmin) Label() string {
	return m.AppLabel + "." + m.ModelName
}

// Site returns the site the admin was registered on, nil before registration.
func (m *ModelAdmin) Site() *Site { return m.site }

// URLName is the route name of one of this model's views.
func (m *ModelAdmin) URLName(view string) string {
	return fmt.Sprintf("%s_%s_%s", m.AppLabel, m.ModelName, view)
}

// URLs returns the standard changelist/add/history/delete/change routes.
func (m *ModelAdmin) URLs() []URLPattern {
	base := fmt.Sprintf("/admin/%s/%s/", m.AppLabel, m.ModelName)
	return []URLPattern{
		{Name: m.URLName(ViewChangelist), Path: base},
		{Name: m.URLName(ViewAdd), Path: base + "add/"},
		{Name: m.URLName(ViewHistory), Path: base + "{id}/history/"},
		{Name: m.URLName(ViewDelete), Path: base + "{id}/delete/"},
		{Name: m.URLName(ViewChange), Path: base + "{id}/change/"},
	}
}

// Codename is the permission codename for action on this model, e.g. "auditlog.delete_logentry".
func (m *ModelAdmin) Codename(action string) string {
	return fmt.Sprintf("%s.%s_%s", m.AppLabel, action, strings.ToLower(m.ModelName))
}

func (m *ModelAdmin) HasViewPermission(req *Request, obj any) bool {
	if req == nil || req.User == nil {
		return false
	}
	return req.User.HasPerm(m.Codename("view")) || req.User.HasPerm(m.Codename("change"))
}

func (m *ModelAdmin) HasAddPermission(req *Request) bool {
	return req != nil && req.User.HasPerm(m.Codename("add"))
}

func (m *ModelAdmin) HasChangePermission(req *Request, obj any) bool {
	return req != nil && req.User.HasPerm(m.Codename("change"))
}

func (m *ModelAdmin) HasDeletePermission(req *Request, obj any) bool {
	return req != nil && req.User.HasPerm(m.Codename("delete"))
}
