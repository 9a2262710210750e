package admin

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgShort(t *testing.T) {
	d := LogEntryDisplay{}

	one := &models.LogEntry{Action: models.ActionCreate, Changes: `{"username": [null, "bob"]}`}
	assert.Equal(t, "1 change: username", d.MsgShort(one))

	del := &models.LogEntry{Action: models.ActionDelete, Changes: `{"username": ["bob", null]}`}
	assert.Equal(t, "", d.MsgShort(del))

	access := &models.LogEntry{Action: models.ActionAccess}
	assert.Equal(t, "", d.MsgShort(access))

	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"field_number_` + itoa(i) + `": ["a", "b"]`)
	}
	b.WriteString("}")
	long := &models.LogEntry{Action: models.ActionUpdate, Changes: b.String()}
	got := d.MsgShort(long)
	require.True(t, strings.HasPrefix(got, "12 changes: field_number_0, field_number_1"), got)
	assert.True(t, strings.HasSuffix(got, " .."), got)
	assert.LessOrEqual(t, len(strings.TrimPrefix(got, "12 changes: ")), msgShortMax+3)
}

func TestCreated_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	d := LogEntryDisplay{Location: loc}
	e := &models.LogEntry{Timestamp: time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2024-01-02 01:00:00", d.Created(e))
}

func TestResourceURL_UnregisteredModel(t *testing.T) {
	site := NewSite()
	d := LogEntryDisplay{Site: site}
	e := &models.LogEntry{ContentType: &models.ContentType{AppLabel: "shop", Model: "order"}, ObjectRepr: "Order #1"}
	assert.Equal(t, Cell{Text: "Order #1"}, d.ResourceURL(e))
}

func TestResourceURL_PrefersObjectID(t *testing.T) {
	site := NewSite()
	site.MustRegister(NewUserAdmin())
	d := LogEntryDisplay{Site: site}
	id := int64(42)
	e := &models.LogEntry{ContentType: &models.ContentType{AppLabel: "auth", Model: "user"}, ObjectPK: "x", ObjectID: &id, ObjectRepr: "bob"}
	assert.Equal(t, "/admin/auth/user/42/change/", d.ResourceURL(e).Href)
}

func TestUserURL_WithoutUserAdmin(t *testing.T) {
	d := LogEntryDisplay{Site: NewSite()}
	e := &models.LogEntry{Actor: &models.User{ID: 3, Username: "carol"}}
	assert.Equal(t, Cell{Text: "carol"}, d.UserURL(e))
}

func TestCIDURL_Empty(t *testing.T) {
	assert.Equal(t, Cell{}, LogEntryDisplay{}.CIDURL(&models.LogEntry{}))
}

func TestSite_ReverseAndRegister(t *testing.T) {
	site := NewSite()
	require.NoError(t, site.Register(NewContentTypeAdmin()))
	assert.Error(t, site.Register(NewContentTypeAdmin()))

	p, err := site.Reverse("admin:contenttypes_contenttype_delete", "4")
	require.NoError(t, err)
	assert.Equal(t, "/admin/contenttypes/contenttype/4/delete/", p)

	_, err = site.Reverse("admin:contenttypes_contenttype_change")
	assert.ErrorIs(t, err, ErrNoReverseMatch)
	_, err = site.Reverse("admin:shop_order_change", "1")
	assert.ErrorIs(t, err, ErrNoReverseMatch)

	assert.Equal(t, "app label", site.FieldVerboseName("contenttypes", "contenttype", "app_label"))
	assert.Equal(t, "other", site.FieldVerboseName("contenttypes", "contenttype", "other"))
}

func TestMsg_MasksPasswordAndSplitsRelationships(t *testing.T) {
	site := NewSite()
	site.MustRegister(NewUserAdmin())
	d := LogEntryDisplay{Site: site}
	e := &models.LogEntry{
		ContentType: &models.ContentType{AppLabel: "auth", Model: "user"},
		Action:      models.ActionUpdate,
		Changes: `{"password": ["old-hash", "new-hash"], "email": ["a@example.com", "b@example.com"],
			"groups": {"type": "m2m", "operation": "add", "objects": ["editors", "auditors"]}}`,
	}

	msg := d.Msg(e)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, "email address", msg.Fields[0].Field)
	assert.Equal(t, "a@example.com", *msg.Fields[0].From)
	assert.Equal(t, "password", msg.Fields[1].Field)
	assert.Equal(t, "***", *msg.Fields[1].From)
	assert.Equal(t, "***", *msg.Fields[1].To)
	assert.Equal(t, 2, msg.Fields[1].Index)

	require.Len(t, msg.Relationships, 1)
	assert.Equal(t, M2MRow{Index: 1, Relationship: "groups", Action: "add", Objects: []string{"editors", "auditors"}}, msg.Relationships[0])
	assert.False(t, msg.Empty())

	assert.True(t, d.Msg(&models.LogEntry{Changes: "not json"}).Empty())
}

func TestCIDURL_KeepsQueryAndResetsOffset(t *testing.T) {
	site := NewSite()
	a := NewLogEntryAdmin(nil, time.UTC, time.Minute)
	site.MustRegister(a)
	req := &Request{Path: "/admin/auditlog/logentry/", Query: map[string][]string{"action": {"update"}, "offset": {"100"}}}
	d := LogEntryDisplay{Site: site, Request: req}

	got := d.CIDURL(&models.LogEntry{CID: "req-1"})
	assert.Equal(t, "/admin/auditlog/logentry/?action=update&cid=req-1", got.Href)
	assert.Equal(t, "req-1", got.Text)
	assert.Equal(t, cidTitle, got.Title)
	// the request's own query is untouched
	assert.Equal(t, "100", req.Query.Get("offset"))
}

func TestActionDisplay(t *testing.T) {
	d := LogEntryDisplay{}
	assert.Equal(t, "create", d.ActionDisplay(&models.LogEntry{Action: models.ActionCreate}))
	assert.Equal(t, "access", d.ActionDisplay(&models.LogEntry{Action: models.ActionAccess}))
}

func TestSite_ModelAdmin(t *testing.T) {
	site := NewDefaultSite(NewLogEntryAdmin(nil, time.UTC, time.Minute))
	u := site.ModelAdmin("auth", "user")
	require.NotNil(t, u)
	assert.Equal(t, "auth_user_change", u.URLName(ViewChange))
	assert.Same(t, site, u.Site())
	assert.Nil(t, site.ModelAdmin("shop", "order"))
}

func TestMsgShort_CutsOnRuneBoundary(t *testing.T) {
	// no space to cut at, and byte 75 falls inside a three-byte rune
	field := "x" + strings.Repeat("€", 30)
	e := &models.LogEntry{Action: models.ActionUpdate, Changes: `{"` + field + `": ["a", "b"]}`}

	got := LogEntryDisplay{}.MsgShort(e)
	require.True(t, strings.HasSuffix(got, " .."), got)
	assert.True(t, utf8.ValidString(got), got)
	assert.Equal(t, "1 change: x"+strings.Repeat("€", 24)+" ..", got)
}
