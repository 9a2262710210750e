package admin

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries       []models.LogEntry
	resourceTypes []repo.ResourceType
	rtCalls       int
	lastQuery     repo.LogEntryQuery
	lastCount     repo.LogEntryQuery
}

func (f *fakeStore) List(_ context.Context, q repo.LogEntryQuery) ([]models.LogEntry, error) {
	f.lastQuery = q
	return f.entries, nil
}

func (f *fakeStore) Count(_ context.Context, q repo.LogEntryQuery) (int, error) {
	f.lastCount = q
	return len(f.entries), nil
}

func (f *fakeStore) GetByID(_ context.Context, id int) (*models.LogEntry, error) {
	for i := range f.entries {
		if f.entries[i].ID == id {
			return &f.entries[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) ResourceTypes(context.Context) ([]repo.ResourceType, error) {
	f.rtCalls++
	return f.resourceTypes, nil
}

func superuser() *models.User {
	return &models.User{ID: 1, Username: "root", Role: models.RoleAdmin, IsActive: true}
}

func viewer(perms ...string) *models.User {
	return &models.User{ID: 2, Username: "viewer", Role: models.RoleViewer, Permissions: perms, IsActive: true}
}

func strp(s string) *string { return &s }

func newTestAdmin(store *fakeStore) (*LogEntryAdmin, *Site) {
	a := NewLogEntryAdmin(store, time.UTC, time.Minute)
	site := NewDefaultSite(a)
	return a, site
}

func TestLogEntryAdmin_DeclarativeOptions(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})

	assert.Equal(t, []string{"content_type", "actor"}, a.ListSelectRelated)
	assert.Equal(t, []string{"created", "resource_url", "action", "msg_short", "user_url", "model_name"}, a.ListDisplay)
	assert.Equal(t, []string{"timestamp", "object_repr", "changes", "actor__first_name", "actor__last_name", "actor__username"}, a.SearchFields)
	assert.Equal(t, []string{"created", "resource_url", "action", "user_url", "msg"}, a.ReadonlyFields)
	require.Len(t, a.ListFilter, 2)
	assert.Equal(t, "action", a.ListFilter[0].ParameterName())
	assert.Equal(t, "resource_type", a.ListFilter[1].ParameterName())
	assert.Equal(t, []Fieldset{
		{Fields: []string{"created", "user_url", "resource_url", "cid"}},
		{Name: "Changes", Fields: []string{"action", "msg"}},
	}, a.Fieldsets)
}

func TestLogEntryAdmin_AddAndChangeAlwaysDenied(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})
	req := &Request{User: superuser(), ResolverMatch: &ResolverMatch{URLName: "auditlog_logentry_add"}}

	assert.False(t, a.HasAddPermission(req))
	assert.False(t, a.HasChangePermission(req, nil))
	assert.False(t, a.HasChangePermission(req, &models.LogEntry{ID: 1}))
}

func TestLogEntryAdmin_HasDeletePermission(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})

	tests := []struct {
		name string
		req  *Request
		want bool
	}{
		{"no resolver match", &Request{User: superuser()}, false},
		{"own delete route", &Request{User: superuser(), ResolverMatch: &ResolverMatch{URLName: "auditlog_logentry_delete"}}, false},
		{"own changelist route", &Request{User: superuser(), ResolverMatch: &ResolverMatch{URLName: "auditlog_logentry_changelist"}}, false},
		{"cascade from other admin, superuser", &Request{User: superuser(), ResolverMatch: &ResolverMatch{URLName: "contenttypes_contenttype_delete"}}, true},
		{"cascade, viewer with perm", &Request{User: viewer("auditlog.delete_logentry"), ResolverMatch: &ResolverMatch{URLName: "contenttypes_contenttype_delete"}}, true},
		{"cascade, viewer without perm", &Request{User: viewer(), ResolverMatch: &ResolverMatch{URLName: "contenttypes_contenttype_delete"}}, false},
		{"cascade, anonymous", &Request{ResolverMatch: &ResolverMatch{URLName: "contenttypes_contenttype_delete"}}, false},
		{"nil request", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.HasDeletePermission(tt.req, nil))
		})
	}
}

func TestLogEntryAdmin_OwnURLNames(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})
	names := a.OwnURLNames()
	for _, n := range []string{
		"auditlog_logentry_changelist", "auditlog_logentry_add", "auditlog_logentry_history",
		"auditlog_logentry_delete", "auditlog_logentry_change", "auditlog_logentry_filters",
	} {
		assert.True(t, names[n], n)
	}
	assert.False(t, names["auth_user_delete"])
}

func TestLogEntryAdmin_ModelName(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})
	assert.Equal(t, "user", a.ModelName(&models.LogEntry{ContentType: &models.ContentType{AppLabel: "auth", Model: "user"}}))
	assert.Equal(t, "", a.ModelName(&models.LogEntry{}))
}

func TestLogEntryAdmin_Changelist(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	store := &fakeStore{
		entries: []models.LogEntry{
			{
				ID:          5,
				ContentType: &models.ContentType{ID: 1, AppLabel: "auth", Model: "user"},
				ObjectPK:    "7",
				ObjectRepr:  "alice",
				Action:      models.ActionUpdate,
				Changes:     `{"email": ["a@x", "b@x"], "role": ["viewer", "admin"]}`,
				Actor:       &models.User{ID: 1, Username: "root", FirstName: "Root", LastName: "User"},
				Timestamp:   ts,
			},
			{
				ID:         4,
				ObjectPK:   "3",
				ObjectRepr: "orphan",
				Action:     models.ActionDelete,
				Timestamp:  ts,
			},
		},
		resourceTypes: []repo.ResourceType{{ContentTypeID: 1, Model: "user"}},
	}
	a, _ := newTestAdmin(store)

	req := &Request{
		User:          viewer("auditlog.view_logentry"),
		ResolverMatch: &ResolverMatch{URLName: "auditlog_logentry_changelist"},
		Path:          "/admin/auditlog/logentry/",
		Query:         url.Values{"q": {`root "b@x"`}, "action": {"update"}, "resource_type": {"1"}, "o": {"-model_name"}},
	}
	res, err := a.Changelist(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"root", "b@x"}, store.lastQuery.Terms)
	assert.Equal(t, a.SearchFields, store.lastQuery.SearchFields)
	require.NotNil(t, store.lastQuery.Action)
	assert.Equal(t, models.ActionUpdate, *store.lastQuery.Action)
	require.NotNil(t, store.lastQuery.ContentTypeID)
	assert.Equal(t, 1, *store.lastQuery.ContentTypeID)
	assert.Equal(t, []string{"-content_type__model"}, store.lastQuery.Ordering)
	assert.Equal(t, 100, store.lastQuery.Limit)
	assert.Zero(t, store.lastCount.Limit)

	require.Len(t, res.Columns, 6)
	assert.Equal(t, "desc", res.Columns[5].Sorted)
	assert.True(t, res.Columns[0].Sortable)
	assert.False(t, res.Columns[1].Sortable)
	assert.False(t, res.CanAdd)
	assert.Equal(t, 2, res.Total)

	require.Len(t, res.Rows, 2)
	first := res.Rows[0]
	assert.Equal(t, "/admin/auditlog/logentry/5/change/", first.URL)
	assert.Equal(t, "2024-05-01 12:30:00", first.Cells[0].Text)
	assert.Equal(t, Cell{Text: "auth | user - alice", Href: "/admin/auth/user/7/change/"}, first.Cells[1])
	assert.Equal(t, "update", first.Cells[2].Text)
	assert.Equal(t, "2 changes: email, role", first.Cells[3].Text)
	assert.Equal(t, Cell{Text: "Root User", Href: "/admin/auth/user/1/change/"}, first.Cells[4])
	assert.Equal(t, "user", first.Cells[5].Text)

	second := res.Rows[1]
	assert.Equal(t, "orphan", second.Cells[1].Text)
	assert.Empty(t, second.Cells[3].Text)
	assert.Equal(t, "system", second.Cells[4].Text)
	assert.Equal(t, "", second.Cells[5].Text)

	require.Len(t, res.Filters, 2)
	assert.True(t, res.Filters[0].Choices[1].Selected)
	assert.Equal(t, []Choice{{Value: "1", Label: "user", Selected: true}}, res.Filters[1].Choices)
}

func TestLogEntryAdmin_Changelist_Errors(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})

	_, err := a.Changelist(context.Background(), &Request{User: viewer()})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	var bad *BadLookupError
	_, err = a.Changelist(context.Background(), &Request{User: superuser(), Query: url.Values{"o": {"msg_short"}}})
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "o", bad.Parameter)

	_, err = a.Changelist(context.Background(), &Request{User: superuser(), Query: url.Values{"action": {"explode"}}})
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "action", bad.Parameter)

	_, err = a.Changelist(context.Background(), &Request{User: superuser(), Query: url.Values{"resource_type": {"abc"}}})
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "resource_type", bad.Parameter)
}

func TestLogEntryAdmin_Detail(t *testing.T) {
	store := &fakeStore{entries: []models.LogEntry{{
		ID:          9,
		ContentType: &models.ContentType{ID: 1, AppLabel: "auth", Model: "user"},
		ObjectPK:    "7",
		ObjectRepr:  "alice",
		Action:      models.ActionUpdate,
		Changes:     `{"password": ["old", "new"], "first_name": [null, "Alice"], "groups": {"type": "m2m", "operation": "add", "objects": ["staff"]}}`,
		CID:         "abc-123",
		Timestamp:   time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}}}
	a, _ := newTestAdmin(store)

	req := &Request{User: superuser(), Path: "/admin/auditlog/logentry/9/change/", Query: url.Values{"action": {"update"}}}
	res, err := a.Detail(context.Background(), req, 9)
	require.NoError(t, err)

	assert.False(t, res.CanChange)
	assert.False(t, res.CanDelete)
	require.Len(t, res.Fieldsets, 2)
	assert.Equal(t, "", res.Fieldsets[0].Name)
	assert.Equal(t, "Changes", res.Fieldsets[1].Name)

	names := []string{}
	for _, f := range res.Fieldsets[0].Fields {
		names = append(names, f.Name)
		assert.True(t, f.ReadOnly, f.Name)
	}
	assert.Equal(t, []string{"created", "user_url", "resource_url", "cid"}, names)

	user := res.Fieldsets[0].Fields[1]
	assert.Equal(t, "system", user.Value.Text)

	cid := res.Fieldsets[0].Fields[3]
	assert.Equal(t, "abc-123", cid.Value.Text)
	assert.Equal(t, "/admin/auditlog/logentry/?action=update&cid=abc-123", cid.Value.Href)

	msg := res.Fieldsets[1].Fields[1].Message
	require.NotNil(t, msg)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, "first name", msg.Fields[0].Field)
	assert.Nil(t, msg.Fields[0].From)
	assert.Equal(t, "Alice", *msg.Fields[0].To)
	assert.Equal(t, "***", *msg.Fields[1].From)
	assert.Equal(t, "***", *msg.Fields[1].To)
	require.Len(t, msg.Relationships, 1)
	assert.Equal(t, M2MRow{Index: 1, Relationship: "groups", Action: "add", Objects: []string{"staff"}}, msg.Relationships[0])

	_, err = a.Detail(context.Background(), req, 404)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestLogEntryAdmin_History(t *testing.T) {
	store := &fakeStore{entries: []models.LogEntry{{
		ID: 3, ContentType: &models.ContentType{ID: 2, AppLabel: "auth", Model: "user"}, ObjectPK: "11",
	}}}
	a, _ := newTestAdmin(store)

	res, err := a.History(context.Background(), &Request{User: superuser(), Query: url.Values{"offset": {"0"}}}, 3)
	require.NoError(t, err)
	assert.True(t, store.lastQuery.ExactObject)
	assert.Equal(t, "11", store.lastQuery.ObjectPK)
	require.NotNil(t, store.lastQuery.ContentTypeID)
	assert.Equal(t, 2, *store.lastQuery.ContentTypeID)
	assert.Equal(t, 100, store.lastQuery.Limit)
	assert.Zero(t, store.lastCount.Limit)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 100, res.Limit)
	assert.Len(t, res.Entries, 1)
}

func TestLogEntryAdmin_History_EntryWithoutObjectKey(t *testing.T) {
	store := &fakeStore{entries: []models.LogEntry{{ID: 3, ObjectRepr: "x"}}}
	a, _ := newTestAdmin(store)

	_, err := a.History(context.Background(), &Request{User: superuser()}, 3)
	require.NoError(t, err)
	// scoped to entries that also lack a content type and object key
	assert.True(t, store.lastQuery.ExactObject)
	assert.Nil(t, store.lastQuery.ContentTypeID)
	assert.Equal(t, "", store.lastQuery.ObjectPK)
	assert.True(t, store.lastCount.ExactObject)
}

func TestLogEntryAdmin_Paging(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})

	tests := []struct {
		query      url.Values
		wantLimit  int
		wantOffset int
	}{
		{url.Values{}, 100, 0},
		{url.Values{"limit": {"250"}, "offset": {"50"}}, 250, 50},
		{url.Values{"limit": {"500"}}, 500, 0},
		{url.Values{"limit": {"1000"}}, 500, 0},
		{url.Values{"limit": {"0"}}, 100, 0},
		{url.Values{"limit": {"-5"}, "offset": {"-1"}}, 100, 0},
		{url.Values{"limit": {"abc"}}, 100, 0},
	}
	for _, tt := range tests {
		limit, offset := a.paging(&Request{Query: tt.query})
		assert.Equal(t, tt.wantLimit, limit, tt.query.Encode())
		assert.Equal(t, tt.wantOffset, offset, tt.query.Encode())
	}
}

func TestResourceTypeFilter_CachesLookups(t *testing.T) {
	store := &fakeStore{resourceTypes: []repo.ResourceType{{ContentTypeID: 3, Model: "contenttype"}}}
	f := NewResourceTypeFilter(store, time.Minute)

	for i := 0; i < 3; i++ {
		choices, err := f.Lookups(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, []Choice{{Value: "3", Label: "contenttype"}}, choices)
	}
	assert.Equal(t, 1, store.rtCalls)

	f.Invalidate()
	_, err := f.Lookups(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, store.rtCalls)
}

func TestSmartSplit(t *testing.T) {
	assert.Equal(t, []string{"alice", "new role"}, smartSplit(`  alice "new role" `))
	assert.Nil(t, smartSplit("   "))
}

func TestLogEntryAdmin_HasViewPermission(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})

	assert.True(t, a.HasViewPermission(&Request{User: superuser()}, nil))
	assert.True(t, a.HasViewPermission(&Request{User: viewer("auditlog.view_logentry")}, nil))
	assert.True(t, a.HasViewPermission(&Request{User: viewer("auditlog.change_logentry")}, nil))
	assert.False(t, a.HasViewPermission(&Request{User: viewer("auth.view_user")}, nil))
	assert.False(t, a.HasViewPermission(&Request{}, nil))

	inactive := superuser()
	inactive.IsActive = false
	assert.False(t, a.HasViewPermission(&Request{User: inactive}, nil))
}

func TestLogEntryAdmin_GetQueryset_BindsRequest(t *testing.T) {
	a, _ := newTestAdmin(&fakeStore{})
	first := &Request{User: superuser(), Query: url.Values{"q": {"ada"}}}
	second := &Request{User: superuser(), Query: url.Values{"q": {"bob"}}}

	qs1 := a.GetQueryset(first)
	qs2 := a.GetQueryset(second)
	assert.Same(t, first, qs1.Request)
	assert.Same(t, second, qs2.Request)
	assert.Equal(t, repo.LogEntryQuery{}, qs1.Query)
}
