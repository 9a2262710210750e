package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// ErrPermissionDenied is returned when a permission gate refuses the request.
var ErrPermissionDenied = errors.New("permission denied")

const (
	defaultListPerPage = 100
	maxListPerPage     = 500
)

// LogEntryStore is the persistence the log entry admin reads from.
type LogEntryStore interface {
	ResourceTypeLister
	List(ctx context.Context, q repo.LogEntryQuery) ([]models.LogEntry, error)
	Count(ctx context.Context, q repo.LogEntryQuery) (int, error)
	GetByID(ctx context.Context, id int) (*models.LogEntry, error)
}

// Fieldset groups detail fields under an optional title.
type Fieldset struct {
	Name   string
	Fields []string
}

type column struct {
	header     string
	orderField string
}

// columns describes every displayable log entry field. orderField is empty for computed columns.
var columns = map[string]column{
	"created":      {header: "Created", orderField: "timestamp"},
	"resource_url": {header: "Resource"},
	"action":       {header: "Action", orderField: "action"},
	"msg_short":    {header: "Changes"},
	"user_url":     {header: "User"},
	"model_name":   {header: "Model", orderField: "content_type__model"},
	"msg":          {header: "Changes"},
	"cid":          {header: "Correlation ID"},
}

// LogEntryAdmin is the read-only admin for audit log entries.
type LogEntryAdmin struct {
	ModelAdmin

	ListSelectRelated []string
	ListDisplay       []string
	SearchFields      []string
	ListFilter        []ListFilter
	ReadonlyFields    []string
	Fieldsets         []Fieldset
	ListPerPage       int

	Store    LogEntryStore
	Location *time.Location

	resourceTypes *ResourceTypeFilter

	ownURLNamesOnce sync.Once
	ownURLNames     map[string]bool
}

func NewLogEntryAdmin(store LogEntryStore, loc *time.Location, filterTTL time.Duration) *LogEntryAdmin {
	resourceTypes := NewResourceTypeFilter(store, filterTTL)
	return &LogEntryAdmin{
		ModelAdmin: ModelAdmin{
			AppLabel:    "auditlog",
			ModelName:   "logentry",
			VerboseName: "log entry",
		},
		ListSelectRelated: []string{"content_type", "actor"},
		ListDisplay: []string{
			"created",
			"resource_url",
			"action",
			"msg_short",
			"user_url",
			"model_name",
		},
		SearchFields: []string{
			"timestamp",
			"object_repr",
			"changes",
			"actor__first_name",
			"actor__last_name",
			"actor__" + models.UsernameField,
		},
		ListFilter:     []ListFilter{ActionFilter{}, resourceTypes},
		ReadonlyFields: []string{"created", "resource_url", "action", "user_url", "msg"},
		Fieldsets: []Fieldset{
			{Fields: []string{"created", "user_url", "resource_url", "cid"}},
			{Name: "Changes", Fields: []string{"action", "msg"}},
		},
		ListPerPage:   defaultListPerPage,
		Store:         store,
		Location:      loc,
		resourceTypes: resourceTypes,
	}
}

// URLs adds the filter choices route to the standard admin routes.
func (a *LogEntryAdmin) URLs() []URLPattern {
	return append(a.ModelAdmin.URLs(), URLPattern{
		Name: a.URLName("filters"),
		Path: "/admin/auditlog/logentry/filters/",
	})
}

// OwnURLNames are the route names this admin serves. Computed once.
func (a *LogEntryAdmin) OwnURLNames() map[string]bool {
	a.ownURLNamesOnce.Do(func() {
		a.ownURLNames = make(map[string]bool)
		for _, p := range a.URLs() {
			if p.Name != "" {
				a.ownURLNames[p.Name] = true
			}
		}
	})
	return a.ownURLNames
}

// HasAddPermission is always false: entries are only written by the recorder.
func (a *LogEntryAdmin) HasAddPermission(req *Request) bool {
	return false
}

// HasChangePermission is always false: entries are immutable.
func (a *LogEntryAdmin) HasChangePermission(req *Request, obj any) bool {
	return false
}

// HasDeletePermission only allows deleting entries as a cascade from another
// admin's route; this admin's own delete routes never allow it.
func (a *LogEntryAdmin) HasDeletePermission(req *Request, obj any) bool {
	if req != nil && req.ResolverMatch != nil && !a.OwnURLNames()[req.ResolverMatch.URLName] {
		return a.ModelAdmin.HasDeletePermission(req, obj)
	}
	return false
}

// Queryset is the base changelist query together with the request it was built for.
type Queryset struct {
	Request *Request
	Query   repo.LogEntryQuery
}

// GetQueryset binds req to the base query so display helpers can build links from it.
func (a *LogEntryAdmin) GetQueryset(req *Request) Queryset {
	return Queryset{Request: req, Query: repo.LogEntryQuery{}}
}

// ModelName is the related content type's model, "" when there is none.
func (a *LogEntryAdmin) ModelName(e *models.LogEntry) string {
	if e.ContentType == nil {
		return ""
	}
	return e.ContentType.Model
}

// Display returns the display helpers bound to req.
func (a *LogEntryAdmin) Display(req *Request) LogEntryDisplay {
	return LogEntryDisplay{Site: a.Site(), Location: a.Location, Request: req}
}

// InvalidateFilters drops cached filter choices.
func (a *LogEntryAdmin) InvalidateFilters() {
	a.resourceTypes.Invalidate()
}

// Cell renders one named field of e.
func (a *LogEntryAdmin) Cell(d LogEntryDisplay, name string, e *models.LogEntry) Cell {
	switch name {
	case "created":
		return Cell{Text: d.Created(e)}
	case "resource_url":
		return d.ResourceURL(e)
	case "action":
		return Cell{Text: d.ActionDisplay(e)}
	case "msg_short":
		return Cell{Text: d.MsgShort(e)}
	case "user_url":
		return d.UserURL(e)
	case "model_name":
		return Cell{Text: a.ModelName(e)}
	case "cid":
		return d.CIDURL(e)
	}
	return Cell{}
}

// Column is a changelist header.
type Column struct {
	Name     string `json:"name"`
	Header   string `json:"header"`
	Sortable bool   `json:"sortable"`
	// Sorted is "asc", "desc" or "" for the current ordering.
	Sorted string `json:"sorted,omitempty"`
}

// ChangelistRow is one entry rendered in ListDisplay order.
type ChangelistRow struct {
	ID    int    `json:"id"`
	URL   string `json:"url,omitempty"`
	Cells []Cell `json:"cells"`
}

// ChangelistResult is one changelist page.
type ChangelistResult struct {
	Columns []Column        `json:"columns"`
	Rows    []ChangelistRow `json:"rows"`
	Filters []FilterSpec    `json:"filters"`
	Search  string          `json:"search,omitempty"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`

	CanAdd bool `json:"can_add"`
}

// ordering turns the "o" parameter (e.g. "-created") into repo lookups.
func (a *LogEntryAdmin) ordering(o string) ([]string, string, string, error) {
	if o == "" {
		return nil, "", "", nil
	}
	name, dir := o, "asc"
	if strings.HasPrefix(o, "-") {
		name, dir = o[1:], "desc"
	}
	col, ok := columns[name]
	if !ok || col.orderField == "" || !contains(a.ListDisplay, name) {
		return nil, "", "", &BadLookupError{Parameter: "o", Value: o}
	}
	field := col.orderField
	if dir == "desc" {
		field = "-" + field
	}
	return []string{field}, name, dir, nil
}

func (a *LogEntryAdmin) paging(req *Request) (int, int) {
	limit := a.ListPerPage
	if limit <= 0 {
		limit = defaultListPerPage
	}
	offset := 0
	if l := param(req, "limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxListPerPage)
		}
	}
	if o := param(req, "offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// FilterSpecs returns every list filter with its choices for req.
func (a *LogEntryAdmin) FilterSpecs(ctx context.Context, req *Request) ([]FilterSpec, error) {
	specs := make([]FilterSpec, 0, len(a.ListFilter))
	for _, f := range a.ListFilter {
		choices, err := f.Lookups(ctx, req)
		if err != nil {
			return nil, err
		}
		specs = append(specs, FilterSpec{Title: f.Title(), Parameter: f.ParameterName(), Choices: choices})
	}
	return specs, nil
}

// Changelist builds one page of the changelist for req.
func (a *LogEntryAdmin) Changelist(ctx context.Context, req *Request) (*ChangelistResult, error) {
	if !a.HasViewPermission(req, nil) {
		return nil, ErrPermissionDenied
	}

	qs := a.GetQueryset(req)
	q := qs.Query
	for _, f := range a.ListFilter {
		if err := f.Queryset(req, &q); err != nil {
			return nil, err
		}
	}
	q.CID = param(req, "cid")

	search := strings.TrimSpace(param(req, "q"))
	if search != "" {
		q.Terms = smartSplit(search)
		q.SearchFields = a.SearchFields
	}

	ordering, sortedCol, sortedDir, err := a.ordering(param(req, "o"))
	if err != nil {
		return nil, err
	}
	q.Ordering = ordering

	total, err := a.Store.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	q.Limit, q.Offset = a.paging(qs.Request)
	entries, err := a.Store.List(ctx, q)
	if err != nil {
		return nil, err
	}

	filters, err := a.FilterSpecs(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &ChangelistResult{
		Columns: make([]Column, 0, len(a.ListDisplay)),
		Rows:    make([]ChangelistRow, 0, len(entries)),
		Filters: filters,
		Search:  search,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		CanAdd:  a.HasAddPermission(req),
	}
	for _, name := range a.ListDisplay {
		col := columns[name]
		c := Column{Name: name, Header: col.header, Sortable: col.orderField != ""}
		if name == sortedCol {
			c.Sorted = sortedDir
		}
		res.Columns = append(res.Columns, c)
	}

	d := a.Display(qs.Request)
	for i := range entries {
		e := &entries[i]
		row := ChangelistRow{ID: e.ID, Cells: make([]Cell, 0, len(a.ListDisplay))}
		if link, err := d.reverse("admin:"+a.URLName(ViewChange), itoa(e.ID)); err == nil {
			row.URL = link
		}
		for _, name := range a.ListDisplay {
			row.Cells = append(row.Cells, a.Cell(d, name, e))
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// DetailField is one rendered field of the detail view.
type DetailField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	ReadOnly bool     `json:"readonly"`
	Value    *Cell    `json:"value,omitempty"`
	Message  *Message `json:"message,omitempty"`
}

// DetailFieldset is a titled group of detail fields.
type DetailFieldset struct {
	Name   string        `json:"name,omitempty"`
	Fields []DetailField `json:"fields"`
}

// DetailResult is the read-only change view of one entry.
type DetailResult struct {
	ID        int              `json:"id"`
	Title     string           `json:"title"`
	Fieldsets []DetailFieldset `json:"fieldsets"`
	CanChange bool             `json:"can_change"`
	CanDelete bool             `json:"can_delete"`
}

// Detail renders entry id in Fieldsets order.
func (a *LogEntryAdmin) Detail(ctx context.Context, req *Request, id int) (*DetailResult, error) {
	if !a.HasViewPermission(req, nil) {
		return nil, ErrPermissionDenied
	}
	e, err := a.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	canChange := a.HasChangePermission(req, e)
	d := a.Display(req)
	res := &DetailResult{
		ID:        e.ID,
		Title:     "View " + a.VerboseName,
		CanChange: canChange,
		CanDelete: a.HasDeletePermission(req, e),
	}
	for _, fs := range a.Fieldsets {
		out := DetailFieldset{Name: fs.Name, Fields: make([]DetailField, 0, len(fs.Fields))}
		for _, name := range fs.Fields {
			f := DetailField{
				Name:     name,
				Label:    columns[name].header,
				ReadOnly: !canChange || contains(a.ReadonlyFields, name),
			}
			if name == "msg" {
				m := d.Msg(e)
				f.Message = &m
			} else {
				c := a.Cell(d, name, e)
				f.Value = &c
			}
			out.Fields = append(out.Fields, f)
		}
		res.Fieldsets = append(res.Fieldsets, out)
	}
	return res, nil
}

// HistoryResult is one page of the entries recorded for a single object.
type HistoryResult struct {
	Entries []models.LogEntry
	Total   int
	Limit   int
	Offset  int
}

// History returns the entries recorded for the same object as entry id, newest
// first, paged like the changelist. Entries without a content type only match
// other entries without one.
func (a *LogEntryAdmin) History(ctx context.Context, req *Request, id int) (*HistoryResult, error) {
	if !a.HasViewPermission(req, nil) {
		return nil, ErrPermissionDenied
	}
	e, err := a.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q := a.GetQueryset(req).Query
	q.ExactObject = true
	q.ObjectPK = e.ObjectPK
	if e.ContentType != nil {
		ct := e.ContentType.ID
		q.ContentTypeID = &ct
	}
	total, err := a.Store.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	q.Limit, q.Offset = a.paging(req)
	entries, err := a.Store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Entries: entries, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
