// Package describe turns activity log records into human readable
// descriptions: a sentence with embedded links, an optional list of changed
// fields, an optional connection line and an optional detail excerpt.
package describe

import (
	"strings"

	"github.com/heartmarshall/activityfeed/internal/activity/fielddiff"
	"github.com/heartmarshall/activityfeed/internal/activity/links"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// Description is the rendered form of one log record.
type Description struct {
	Sentence   Template             `json:"sentence"`
	Changes    []domain.ChangeField `json:"changes"`
	Connection Template             `json:"connection,omitempty"`
	Detail     string               `json:"detail,omitempty"`
}

// Differ compares two snapshots over a field spec.
type Differ func(oldData, newData domain.Snapshot, spec fielddiff.Spec) []domain.ChangeField

// Engine describes records. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	diff Differ
}

// Option configures an Engine.
type Option func(*Engine)

// WithDiffer replaces the field differ.
func WithDiffer(d Differ) Option {
	return func(e *Engine) {
		if d != nil {
			e.diff = d
		}
	}
}

// NewEngine creates an Engine using fielddiff.Diff.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{diff: fielddiff.Diff}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// input is what a describe function sees.
type input struct {
	rec    domain.LogRecord
	viewer *domain.Identity
	diff   Differ
}

func (in input) op() domain.Operation { return in.rec.Operation }

func (in input) changes(spec fielddiff.Spec) []domain.ChangeField {
	return in.diff(in.rec.OldData, in.rec.NewData, spec)
}

// rules is the registry entry for one table.
type rules struct {
	fields   fielddiff.Spec
	describe func(in input, fields fielddiff.Spec) Description
}

var registry = map[domain.EntityKind]rules{
	domain.EntityKindProjects:           {fields: projectFields, describe: describeProject},
	domain.EntityKindMilestones:         {fields: milestoneFields, describe: describeMilestone},
	domain.EntityKindTasks:              {fields: taskFields, describe: describeTask},
	domain.EntityKindAssignments:        {describe: describeAssignment},
	domain.EntityKindTaskLabels:         {describe: describeTaskLabel},
	domain.EntityKindComments:           {fields: commentFields, describe: describeComment},
	domain.EntityKindFiles:              {fields: fileFields, describe: describeFile},
	domain.EntityKindProjectMembers:     {fields: memberFields, describe: describeMember},
	domain.EntityKindPendingInvitations: {describe: describeInvitation},
	domain.EntityKindUsers:              {fields: userFields, describe: describeUser},
}

// FieldSpec returns the diffed columns of a table, or nil when the table
// has no diff.
func FieldSpec(k domain.EntityKind) fielddiff.Spec {
	return append(fielddiff.Spec(nil), registry[k].fields...)
}

// Describe renders rec for viewer. It never fails: unknown tables and
// malformed records get the generic sentence.
func (e *Engine) Describe(rec domain.LogRecord, viewer *domain.Identity) (d Description) {
	in := input{rec: rec, viewer: viewer, diff: e.diff}

	defer func() {
		if r := recover(); r != nil {
			d = generic(in)
		}
		if d.Changes == nil {
			d.Changes = []domain.ChangeField{}
		}
	}()

	if Validate(rec) != nil {
		return generic(in)
	}
	kind, _ := rec.Kind()
	r := registry[kind]
	return r.describe(in, r.fields)
}

// Validate reports why a record cannot be described by its table rules.
// A nil error means the record is well formed.
func Validate(rec domain.LogRecord) error {
	if rec.DecodeErr != nil {
		return malformed(rec, "undecodable: "+rec.DecodeErr.Error())
	}
	kind, ok := rec.Kind()
	if !ok {
		return malformed(rec, "unknown table "+quote(rec.TableName))
	}
	if rec.OldData == nil && rec.NewData == nil {
		return malformed(rec, "both snapshots are null")
	}
	switch rec.Operation {
	case domain.OperationInsert:
		if rec.NewData == nil {
			return malformed(rec, "insert without new_data")
		}
	case domain.OperationDelete:
		if rec.OldData == nil {
			return malformed(rec, "delete without old_data")
		}
	case domain.OperationUpdate:
		if rec.OldData == nil || rec.NewData == nil {
			return malformed(rec, "update without both snapshots")
		}
	}
	if kind == domain.EntityKindProjectMembers &&
		(rec.Operation == domain.OperationInsert || rec.Operation == domain.OperationDelete) &&
		rec.RelatedSnapshot(domain.RelatedProjectMember) == nil {
		return malformed(rec, "missing related project_member")
	}
	return nil
}

func malformed(rec domain.LogRecord, reason string) error {
	return &domain.MalformedError{RecordID: rec.ID, Reason: reason}
}

// generic is the sentence for unknown tables and malformed records:
// Verb type "name" [prep project P].
func generic(in input) Description {
	rec := in.rec
	verb, prep := "Modified", "in"
	switch rec.Operation {
	case domain.OperationInsert:
		verb, prep = "Added", "to"
	case domain.OperationUpdate:
		verb = "Updated"
	case domain.OperationDelete:
		verb, prep = "Deleted", "from"
	}

	s := newSentence(verb + " " + typeLabel(rec.TableName) + " " + quote(genericName(rec)))
	s.scope(prep, "project", links.Project(rec), links.ProjectName(rec))
	return Description{Sentence: s.build()}
}

func typeLabel(table string) string {
	if k := domain.EntityKind(table); k.IsValid() {
		return strings.ToLower(k.Label())
	}
	if t := strings.TrimSpace(strings.ReplaceAll(table, "_", " ")); t != "" {
		return t
	}
	return "record"
}

func genericName(rec domain.LogRecord) string {
	var rel domain.Snapshot
	if k, ok := rec.Kind(); ok {
		rel = rec.RelatedSnapshot(k.Relation())
	}
	candidates := []struct {
		snap domain.Snapshot
		key  string
	}{
		{rel, "name"}, {rel, "title"},
		{rec.NewData, "name"}, {rec.OldData, "name"},
		{rec.NewData, "title"}, {rec.OldData, "title"},
	}
	for _, c := range candidates {
		if v := strings.TrimSpace(c.snap.Text(c.key)); v != "" {
			return v
		}
	}
	return "item"
}

func quote(s string) string { return `"` + s + `"` }
