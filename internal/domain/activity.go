package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a point-in-time column map of one row. No schema is enforced;
// describers interpret whichever columns the table implies.
type Snapshot map[string]any

// Get returns the raw value stored under key. Missing keys and JSON nulls
// both yield nil.
func (s Snapshot) Get(key string) any {
	if s == nil {
		return nil
	}
	return s[key]
}

// Has reports whether key is present with a non-null value.
func (s Snapshot) Has(key string) bool {
	return s.Get(key) != nil
}

// String returns the value under key rendered as a string. Numbers and
// booleans are stringified, so ids serialized as JSON numbers still work.
// ok is false for missing or null values.
func (s Snapshot) String(key string) (string, bool) {
	return Scalar(s.Get(key))
}

// Text is String without the presence flag.
func (s Snapshot) Text(key string) string {
	v, _ := s.String(key)
	return v
}

// ID returns a trimmed, non-empty identifier or "".
func (s Snapshot) ID(key string) string {
	return strings.TrimSpace(s.Text(key))
}

// Bool interprets the value under key as a boolean. Strings "true"/"false"
// and numbers 0/1 are accepted.
func (s Snapshot) Bool(key string) (bool, bool) {
	switch v := s.Get(key).(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case float64:
		return v != 0, true
	case json.Number:
		f, err := v.Float64()
		return f != 0, err == nil
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	}
	return false, false
}

// Scalar renders a JSON scalar as a string.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case time.Time:
		return t.UTC().Format(time.RFC3339), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Actor is the user recorded as having made a change.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// IsZero reports whether no actor field is known.
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Name == "" && a.Email == ""
}

// LogRecord is one audit-trail entry for a single table mutation.
type LogRecord struct {
	ID        string
	TableName string
	Operation Operation
	OldData   Snapshot
	NewData   Snapshot
	Actor     Actor
	CreatedAt time.Time
	Related   map[Relation]Snapshot
	// DecodeErr is set when part of the stored record could not be decoded.
	// The affected fields are left empty and the record keeps its place in
	// the page.
	DecodeErr error
}

// Kind returns the record's EntityKind and whether the table is supported.
func (r LogRecord) Kind() (EntityKind, bool) {
	k := EntityKind(r.TableName)
	return k, k.IsValid()
}

// RelatedSnapshot returns the side-loaded snapshot for rel, or nil.
func (r LogRecord) RelatedSnapshot(rel Relation) Snapshot {
	if r.Related == nil {
		return nil
	}
	return r.Related[rel]
}

// Current returns the most recent snapshot: NewData when present, else
// OldData.
func (r LogRecord) Current() Snapshot {
	if r.NewData != nil {
		return r.NewData
	}
	return r.OldData
}

// Field looks key up in NewData, then OldData.
func (r LogRecord) Field(key string) (string, bool) {
	if v, ok := r.NewData.String(key); ok {
		return v, true
	}
	return r.OldData.String(key)
}

// Identity is the viewer the feed is rendered for.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// LogPage is one response of the log source.
type LogPage struct {
	Records []LogRecord
	HasMore bool
}

// ChangeField is one field-level before→after difference, already rendered.
type ChangeField struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}
