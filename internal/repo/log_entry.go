package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crucial707/auditlog-admin/internal/models"
)

// searchColumns maps admin search lookups to SQL expressions on the joined changelist query.
var searchColumns = map[string]string{
	"timestamp":           "e.timestamp::text",
	"object_repr":         "e.object_repr",
	"changes":             "e.changes",
	"actor__first_name":   "u.first_name",
	"actor__last_name":    "u.last_name",
	"actor__username":     "u.username",
	"content_type__model": "ct.model",
	"cid":                 "e.cid",
}

// orderColumns maps orderable lookups to SQL expressions.
var orderColumns = map[string]string{
	"timestamp":           "e.timestamp",
	"action":              "e.action",
	"content_type__model": "ct.model",
	"object_repr":         "e.object_repr",
	"id":                  "e.id",
}

const logEntrySelect = `
	SELECT e.id, e.content_type_id, COALESCE(ct.app_label, ''), COALESCE(ct.model, ''),
	       e.object_pk, e.object_id, e.object_repr, e.serialized_data, e.action, e.changes,
	       COALESCE(e.cid, ''), e.actor_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''),
	       COALESCE(u.last_name, ''), COALESCE(u.email, ''), COALESCE(e.remote_addr, ''),
	       e.remote_port, e.timestamp, e.additional_data
	FROM auditlog_logentry e
	LEFT JOIN content_types ct ON ct.id = e.content_type_id
	LEFT JOIN users u ON u.id = e.actor_id`

// LogEntryQuery narrows and orders a changelist query.
type LogEntryQuery struct {
	// Terms must each match at least one of SearchFields (case-insensitive contains).
	Terms        []string
	SearchFields []string

	Action        *models.Action
	ContentTypeID *int
	CID           string
	ObjectPK      string
	// ExactObject scopes to one tracked object: object_pk must equal ObjectPK
	// even when empty, and a nil ContentTypeID means content_type_id IS NULL.
	ExactObject bool

	// Ordering lists lookups, "-" prefixed for descending.
	Ordering []string

	Limit  int
	Offset int
}

// LogEntryRepo reads and writes audit log entries.
type LogEntryRepo struct {
	DB *sql.DB
}

func NewLogEntryRepo(db *sql.DB) *LogEntryRepo {
	return &LogEntryRepo{DB: db}
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// where builds the WHERE clause and its args for q.
func (q LogEntryQuery) where() (string, []any, error) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, term := range q.Terms {
		if term == "" {
			continue
		}
		placeholder := next("%" + likeEscaper.Replace(term) + "%")
		var ors []string
		for _, field := range q.SearchFields {
			col, ok := searchColumns[field]
			if !ok {
				return "", nil, fmt.Errorf("unsupported search field %q", field)
			}
			ors = append(ors, col+` ILIKE `+placeholder+` ESCAPE '\'`)
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if q.Action != nil {
		conds = append(conds, "e.action = "+next(int(*q.Action)))
	}
	if q.ContentTypeID != nil {
		conds = append(conds, "e.content_type_id = "+next(*q.ContentTypeID))
	} else if q.ExactObject {
		conds = append(conds, "e.content_type_id IS NULL")
	}
	if q.CID != "" {
		conds = append(conds, "e.cid = "+next(q.CID))
	}
	if q.ObjectPK != "" || q.ExactObject {
		conds = append(conds, "e.object_pk = "+next(q.ObjectPK))
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (q LogEntryQuery) orderBy() (string, error) {
	ordering := q.Ordering
	if len(ordering) == 0 {
		ordering = []string{"-timestamp"}
	}
	parts := make([]string, 0, len(ordering)+1)
	hasID := false
	for _, o := range ordering {
		dir := "ASC"
		if strings.HasPrefix(o, "-") {
			dir = "DESC"
			o = o[1:]
		}
		col, ok := orderColumns[o]
		if !ok {
			return "", fmt.Errorf("unsupported ordering %q", o)
		}
		if o == "id" {
			hasID = true
		}
		parts = append(parts, col+" "+dir)
	}
	// deterministic pages
	if !hasID {
		parts = append(parts, "e.id DESC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func scanLogEntry(row interface{ Scan(...any) error }) (*models.LogEntry, error) {
	var e models.LogEntry
	var ctID, objID, actor, port sql.NullInt64
	var appLabel, ctModel, username, firstName, lastName, email string
	var action int
	var serialized, extra []byte
	err := row.Scan(&e.ID, &ctID, &appLabel, &ctModel,
		&e.ObjectPK, &objID, &e.ObjectRepr, &serialized, &action, &e.Changes,
		&e.CID, &actor, &username, &firstName,
		&lastName, &email, &e.RemoteAddr,
		&port, &e.Timestamp, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Action = models.Action(action)
	if ctID.Valid {
		e.ContentType = &models.ContentType{ID: int(ctID.Int64), AppLabel: appLabel, Model: ctModel}
	}
	if objID.Valid {
		id := objID.Int64
		e.ObjectID = &id
	}
	if actor.Valid {
		e.Actor = &models.User{ID: int(actor.Int64), Username: username, FirstName: firstName, LastName: lastName, Email: email, IsActive: true}
	}
	if port.Valid {
		p := int(port.Int64)
		e.RemotePort = &p
	}
	if len(serialized) > 0 {
		e.SerializedData = serialized
	}
	if len(extra) > 0 {
		e.AdditionalData = extra
	}
	return &e, nil
}

// List returns one page of entries with content type and actor joined in.
func (r *LogEntryRepo) List(ctx context.Context, q LogEntryQuery) ([]models.LogEntry, error) {
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}
	order, err := q.orderBy()
	if err != nil {
		return nil, err
	}
	query := logEntrySelect + where + order
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LogEntry{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Count returns how many entries match q, ignoring its ordering and paging.
func (r *LogEntryRepo) Count(ctx context.Context, q LogEntryQuery) (int, error) {
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM auditlog_logentry e
	LEFT JOIN content_types ct ON ct.id = e.content_type_id
	LEFT JOIN users u ON u.id = e.actor_id` + where

	var n int
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// GetByID returns one entry or ErrNotFound.
func (r *LogEntryRepo) GetByID(ctx context.Context, id int) (*models.LogEntry, error) {
	return scanLogEntry(r.DB.QueryRowContext(ctx, logEntrySelect+` WHERE e.id = $1`, id))
}

// NewLogEntry is the input for Create.
type NewLogEntry struct {
	ContentTypeID  int
	ObjectPK       string
	ObjectID       *int64
	ObjectRepr     string
	SerializedData []byte
	Action         models.Action
	Changes        string
	CID            string
	ActorID        *int
	RemoteAddr     string
	RemotePort     *int
	AdditionalData []byte
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Create inserts an entry and returns its id and timestamp.
func (r *LogEntryRepo) Create(ctx context.Context, in NewLogEntry) (int, time.Time, error) {
	var (
		id int
		ts time.Time
	)
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO auditlog_logentry
		    (content_type_id, object_pk, object_id, object_repr, serialized_data, action, changes,
		     cid, actor_id, remote_addr, remote_port, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, timestamp
	`,
		in.ContentTypeID, in.ObjectPK, in.ObjectID, in.ObjectRepr, nullBytes(in.SerializedData),
		int(in.Action), in.Changes, nullString(in.CID), in.ActorID, nullString(in.RemoteAddr),
		in.RemotePort, nullBytes(in.AdditionalData),
	).Scan(&id, &ts)
	return id, ts, err
}

// ResourceType is one choice of the resource type filter.
type ResourceType struct {
	ContentTypeID int    `json:"content_type_id"`
	Model         string `json:"model"`
}

// ResourceTypes returns the distinct content types that have entries, ordered by model.
func (r *LogEntryRepo) ResourceTypes(ctx context.Context) ([]ResourceType, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT e.content_type_id, ct.model
		FROM auditlog_logentry e
		JOIN content_types ct ON ct.id = e.content_type_id
		ORDER BY ct.model, e.content_type_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ResourceType{}
	for rows.Next() {
		var rt ResourceType
		if err := rows.Scan(&rt.ContentTypeID, &rt.Model); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// CountByContentType returns how many entries reference a content type.
func (r *LogEntryRepo) CountByContentType(ctx context.Context, contentTypeID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auditlog_logentry WHERE content_type_id = $1`, contentTypeID).Scan(&n)
	return n, err
}

// DeleteBefore removes entries older than cutoff and returns how many were removed.
func (r *LogEntryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM auditlog_logentry WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll removes every entry.
func (r *LogEntryRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM auditlog_logentry`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
