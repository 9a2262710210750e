package admin

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crucial707/auditlog-admin/internal/models"
)

const (
	// msgShortMax is the longest field list shown in the short change message.
	msgShortMax = 75

	cidTitle = "Click to filter by records with this correlation id"

	createdLayout = "2006-01-02 15:04:05"
)

// Cell is one rendered value: plain text, or a link when Href is set.
type Cell struct {
	Text  string `json:"text"`
	Href  string `json:"href,omitempty"`
	Title string `json:"title,omitempty"`
}

// ChangeRow is one atomic field change in a change message.
type ChangeRow struct {
	Index int     `json:"index"`
	Field string  `json:"field"`
	From  *string `json:"from"`
	To    *string `json:"to"`
}

// M2MRow is one relationship change in a change message.
type M2MRow struct {
	Index        int      `json:"index"`
	Relationship string   `json:"relationship"`
	Action       string   `json:"action"`
	Objects      []string `json:"objects"`
}

// Message is the full change message of an entry.
type Message struct {
	Fields        []ChangeRow `json:"fields,omitempty"`
	Relationships []M2MRow    `json:"relationships,omitempty"`
}

// Empty reports whether the message has nothing to show.
func (m Message) Empty() bool {
	return len(m.Fields) == 0 && len(m.Relationships) == 0
}

// LogEntryDisplay renders log entries for one request. It is created per
// request so that links can carry the request's query parameters.
type LogEntryDisplay struct {
	Site     *Site
	Location *time.Location
	Request  *Request
}

// Created is the entry timestamp in the display timezone.
func (d LogEntryDisplay) Created(e *models.LogEntry) string {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return e.Timestamp.In(loc).Format(createdLayout)
}

// UserURL links to the actor's admin page, or says "system" when there is no actor.
func (d LogEntryDisplay) UserURL(e *models.LogEntry) Cell {
	if e.Actor == nil {
		return Cell{Text: "system"}
	}
	label := e.Actor.String()
	link, err := d.reverse("admin:auth_user_change", itoa(e.Actor.ID))
	if err != nil {
		return Cell{Text: label}
	}
	return Cell{Text: label, Href: link}
}

// ResourceURL links to the tracked object's admin page when its model is registered.
func (d LogEntryDisplay) ResourceURL(e *models.LogEntry) Cell {
	if e.ContentType == nil {
		return Cell{Text: e.ObjectRepr}
	}
	viewname := "admin:" + e.ContentType.AppLabel + "_" + e.ContentType.Model + "_change"
	link, err := d.reverse(viewname, e.ObjectKey())
	if err != nil {
		return Cell{Text: e.ObjectRepr}
	}
	return Cell{Text: e.ContentType.String() + " - " + e.ObjectRepr, Href: link}
}

// ActionDisplay is the action label.
func (d LogEntryDisplay) ActionDisplay(e *models.LogEntry) string {
	return e.Action.String()
}

// MsgShort summarises the changed fields: "2 changes: email, role".
// Deletes and accesses have no summary.
func (d LogEntryDisplay) MsgShort(e *models.LogEntry) string {
	if e.Action == models.ActionDelete || e.Action == models.ActionAccess {
		return ""
	}
	changes, err := models.ParseChanges(e.Changes)
	if err != nil {
		return ""
	}
	fieldNames := changeOrder(e.Changes, changes)
	s := "s"
	if len(changes) == 1 {
		s = ""
	}
	fields := strings.Join(fieldNames, ", ")
	if len(fields) > msgShortMax {
		cut := strings.LastIndex(fields[:msgShortMax], " ")
		if cut < 0 {
			cut = msgShortMax
			for cut > 0 && !utf8.RuneStart(fields[cut]) {
				cut--
			}
		}
		fields = fields[:cut] + " .."
	}
	return itoa(len(changes)) + " change" + s + ": " + fields
}

// Msg is the detailed change message. Password values are masked.
func (d LogEntryDisplay) Msg(e *models.LogEntry) Message {
	var msg Message
	changes, err := models.ParseChanges(e.Changes)
	if err != nil {
		return msg
	}

	masked := "***"
	atomic, m2m := 0, 0
	for _, field := range changes.Fields() {
		change := changes[field]
		if change.M2M != nil {
			m2m++
			msg.Relationships = append(msg.Relationships, M2MRow{
				Index:        m2m,
				Relationship: field,
				Action:       change.M2M.Operation,
				Objects:      change.M2M.Objects,
			})
			continue
		}
		atomic++
		row := ChangeRow{Index: atomic, Field: d.fieldVerboseName(e, field), From: change.Old, To: change.New}
		if field == "password" {
			row.From, row.To = &masked, &masked
		}
		msg.Fields = append(msg.Fields, row)
	}
	return msg
}

// CIDURL links to the changelist filtered by the entry's correlation id,
// keeping the current request's other query parameters.
func (d LogEntryDisplay) CIDURL(e *models.LogEntry) Cell {
	if e.CID == "" {
		return Cell{}
	}
	return Cell{Text: e.CID, Href: d.addQueryParameter("cid", e.CID), Title: cidTitle}
}

func (d LogEntryDisplay) addQueryParameter(key, value string) string {
	q := url.Values{}
	path := ""
	if d.Request != nil {
		for k, vs := range d.Request.Query {
			q[k] = append([]string(nil), vs...)
		}
		path = d.Request.Path
	}
	if d.Site != nil {
		if p, err := d.Site.Reverse("admin:auditlog_logentry_changelist"); err == nil {
			path = p
		}
	}
	q.Set(key, value)
	q.Del("offset")
	return path + "?" + q.Encode()
}

func (d LogEntryDisplay) reverse(name string, args ...string) (string, error) {
	if d.Site == nil {
		return "", errors.New("no admin site")
	}
	return d.Site.Reverse(name, args...)
}

func (d LogEntryDisplay) fieldVerboseName(e *models.LogEntry, field string) string {
	if d.Site == nil || e.ContentType == nil {
		return field
	}
	return d.Site.FieldVerboseName(e.ContentType.AppLabel, e.ContentType.Model, field)
}
