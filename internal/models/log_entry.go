package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Action is the kind of event a log entry records. Values match the stored smallint.
type Action int

const (
	ActionCreate Action = 0
	ActionUpdate Action = 1
	ActionDelete Action = 2
	ActionAccess Action = 3
)

var actionLabels = map[Action]string{
	ActionCreate: "create",
	ActionUpdate: "update",
	ActionDelete: "delete",
	ActionAccess: "access",
}

// Actions lists every action in stored order, for filter choices.
var Actions = []Action{ActionCreate, ActionUpdate, ActionDelete, ActionAccess}

func (a Action) String() string {
	if s, ok := actionLabels[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction accepts either the label ("update") or the stored number ("1").
func ParseAction(s string) (Action, error) {
	for a, label := range actionLabels {
		if label == s || fmt.Sprint(int(a)) == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		s = fmt.Sprint(n)
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// M2MChange is the change record for a many-to-many relation.
type M2MChange struct {
	Type      string   `json:"type"`
	Operation string   `json:"operation"`
	Objects   []string `json:"objects"`
}

// FieldChange is either an atomic [old, new] pair or an M2M change.
type FieldChange struct {
	Old *string
	New *string
	M2M *M2MChange
}

func (c FieldChange) MarshalJSON() ([]byte, error) {
	if c.M2M != nil {
		return json.Marshal(c.M2M)
	}
	return json.Marshal([]*string{c.Old, c.New})
}

func (c *FieldChange) UnmarshalJSON(b []byte) error {
	var pair []*string
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("change pair has %d values", len(pair))
		}
		c.Old, c.New = pair[0], pair[1]
		return nil
	}
	var m2m M2MChange
	if err := json.Unmarshal(b, &m2m); err != nil {
		return fmt.Errorf("change is neither a pair nor an m2m object: %w", err)
	}
	c.M2M = &m2m
	return nil
}

// Changes maps a field name to its change.
type Changes map[string]FieldChange

// Fields returns the changed field names in sorted order.
func (c Changes) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ParseChanges decodes the stored changes text. Empty text is no changes.
func ParseChanges(raw string) (Changes, error) {
	if raw == "" || raw == "null" {
		return Changes{}, nil
	}
	var c Changes
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return c, nil
}

// LogEntry is one persisted audit record.
type LogEntry struct {
	ID             int             `json:"id"`
	ContentType    *ContentType    `json:"content_type,omitempty"`
	ObjectPK       string          `json:"object_pk"`
	ObjectID       *int64          `json:"object_id,omitempty"`
	ObjectRepr     string          `json:"object_repr"`
	SerializedData json.RawMessage `json:"serialized_data,omitempty"`
	Action         Action          `json:"action"`
	Changes        string          `json:"changes"`
	CID            string          `json:"cid,omitempty"`
	Actor          *User           `json:"actor,omitempty"`
	RemoteAddr     string          `json:"remote_addr,omitempty"`
	RemotePort     *int            `json:"remote_port,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	AdditionalData json.RawMessage `json:"additional_data,omitempty"`
}

// ObjectKey is the key used to link to the tracked object: ObjectID when set, ObjectPK otherwise.
func (e *LogEntry) ObjectKey() string {
	if e.ObjectID != nil {
		return fmt.Sprint(*e.ObjectID)
	}
	return e.ObjectPK
}
