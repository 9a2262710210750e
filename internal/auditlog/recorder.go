// Package auditlog writes log entries for changes the service itself makes.
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/crucial707/auditlog-admin/internal/metrics"
	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// maskedFields never have their values stored.
var maskedFields = map[string]bool{"password": true}

const masked = "***"

// EntryWriter persists new log entries.
type EntryWriter interface {
	Create(ctx context.Context, in repo.NewLogEntry) (int, time.Time, error)
}

// ContentTypeResolver maps app_label.model to a content type row.
type ContentTypeResolver interface {
	GetOrCreate(ctx context.Context, appLabel, model string) (*models.ContentType, error)
}

// Meta is what the request contributes to an entry.
type Meta struct {
	ActorID    *int
	RemoteAddr string
	RemotePort *int
	CID        string
}

// Event describes one change to a tracked object.
type Event struct {
	AppLabel   string
	Model      string
	ObjectPK   string
	ObjectRepr string
	Action     models.Action
	// Before and After are the tracked field values; nil on create and delete respectively.
	Before map[string]string
	After  map[string]string
}

// Recorder diffs events and writes them as log entries.
type Recorder struct {
	Entries      EntryWriter
	ContentTypes ContentTypeResolver
}

func NewRecorder(entries EntryWriter, contentTypes ContentTypeResolver) *Recorder {
	return &Recorder{Entries: entries, ContentTypes: contentTypes}
}

// Diff returns the changed fields between before and after. Unchanged fields are omitted.
func Diff(before, after map[string]string) models.Changes {
	changes := models.Changes{}
	value := func(m map[string]string, k string) *string {
		if m == nil {
			return nil
		}
		v, ok := m[k]
		if !ok {
			return nil
		}
		return &v
	}
	keys := map[string]bool{}
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}
	for k := range keys {
		old, cur := value(before, k), value(after, k)
		if old != nil && cur != nil && *old == *cur {
			continue
		}
		if old == nil && cur != nil && *cur == "" {
			continue
		}
		if maskedFields[k] {
			if old != nil {
				m := masked
				old = &m
			}
			if cur != nil {
				m := masked
				cur = &m
			}
		}
		changes[k] = models.FieldChange{Old: old, New: cur}
	}
	return changes
}

// Record writes ev as a log entry. Updates without changes are skipped and return 0.
func (r *Recorder) Record(ctx context.Context, meta Meta, ev Event) (int, error) {
	changes := Diff(ev.Before, ev.After)
	if ev.Action == models.ActionUpdate && len(changes) == 0 {
		return 0, nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return 0, fmt.Errorf("encode changes: %w", err)
	}
	ct, err := r.ContentTypes.GetOrCreate(ctx, ev.AppLabel, ev.Model)
	if err != nil {
		return 0, fmt.Errorf("resolve content type %s.%s: %w", ev.AppLabel, ev.Model, err)
	}

	in := repo.NewLogEntry{
		ContentTypeID: ct.ID,
		ObjectPK:      ev.ObjectPK,
		ObjectRepr:    ev.ObjectRepr,
		Action:        ev.Action,
		Changes:       string(raw),
		CID:           meta.CID,
		ActorID:       meta.ActorID,
		RemoteAddr:    meta.RemoteAddr,
		RemotePort:    meta.RemotePort,
	}
	if id, err := strconv.ParseInt(ev.ObjectPK, 10, 64); err == nil {
		in.ObjectID = &id
	}

	id, _, err := r.Entries.Create(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("create log entry: %w", err)
	}
	metrics.IncEntriesRecorded(ev.Action.String())
	slog.Debug("audit entry recorded",
		"id", id,
		"content_type", ct.String(),
		"object_pk", ev.ObjectPK,
		"action", ev.Action.String(),
		"cid", meta.CID)
	return id, nil
}
