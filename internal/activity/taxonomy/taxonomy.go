// Package taxonomy groups the audited tables into user-facing filter
// categories and provides pure selection arithmetic over them. Group state
// is always derived from the selected tables; it is never stored.
package taxonomy

import (
	"strings"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// Group is a user-facing bucket of related tables.
type Group struct {
	Name   string
	Tables []domain.EntityKind
}

var groups = []Group{
	{Name: "Projects", Tables: []domain.EntityKind{domain.EntityKindProjects, domain.EntityKindMilestones}},
	{Name: "Tasks", Tables: []domain.EntityKind{domain.EntityKindTasks, domain.EntityKindAssignments, domain.EntityKindTaskLabels}},
	{Name: "Team", Tables: []domain.EntityKind{domain.EntityKindProjectMembers, domain.EntityKindPendingInvitations}},
	{Name: "Content", Tables: []domain.EntityKind{domain.EntityKindFiles, domain.EntityKindComments}},
	{Name: "Organization", Tables: []domain.EntityKind{domain.EntityKindUsers}},
}

// Groups returns the five filter groups.
func Groups() []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = Group{Name: g.Name, Tables: append([]domain.EntityKind(nil), g.Tables...)}
	}
	return out
}

// GroupOf returns the group a table belongs to.
func GroupOf(k domain.EntityKind) (Group, bool) {
	for _, g := range groups {
		for _, t := range g.Tables {
			if t == k {
				return g, true
			}
		}
	}
	return Group{}, false
}

// Selection is an immutable set of selected tables. The zero value selects
// nothing, which the log source treats as "no filter".
type Selection struct {
	set map[domain.EntityKind]struct{}
}

// NewSelection builds a selection from tables, ignoring unknown kinds.
func NewSelection(tables ...domain.EntityKind) Selection {
	set := make(map[domain.EntityKind]struct{}, len(tables))
	for _, t := range tables {
		if t.IsValid() {
			set[t] = struct{}{}
		}
	}
	return Selection{set: set}
}

// All selects every table.
func All() Selection {
	return NewSelection(domain.AllEntityKinds()...)
}

// ParseSelection parses a comma-separated table list. Blank input yields an
// empty selection; unknown names fail with a validation error.
func ParseSelection(raw string) (Selection, error) {
	var tables []domain.EntityKind
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := domain.ParseEntityKind(part)
		if err != nil {
			return Selection{}, domain.NewValidationError("tables", err.Error())
		}
		tables = append(tables, k)
	}
	return NewSelection(tables...), nil
}

// Has reports whether k is selected.
func (s Selection) Has(k domain.EntityKind) bool {
	_, ok := s.set[k]
	return ok
}

// Len is the number of selected tables.
func (s Selection) Len() int { return len(s.set) }

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return len(s.set) == 0 }

// Tables lists the selected tables in catalog order.
func (s Selection) Tables() []domain.EntityKind {
	out := make([]domain.EntityKind, 0, len(s.set))
	for _, k := range domain.AllEntityKinds() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Equal reports whether both selections hold the same tables.
func (s Selection) Equal(o Selection) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.set {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// With returns a copy with tables added.
func (s Selection) With(tables ...domain.EntityKind) Selection {
	return NewSelection(append(s.Tables(), tables...)...)
}

// Without returns a copy with tables removed.
func (s Selection) Without(tables ...domain.EntityKind) Selection {
	drop := NewSelection(tables...)
	var keep []domain.EntityKind
	for _, k := range s.Tables() {
		if !drop.Has(k) {
			keep = append(keep, k)
		}
	}
	return NewSelection(keep...)
}

// Toggle flips a single table.
func (s Selection) Toggle(k domain.EntityKind) Selection {
	if s.Has(k) {
		return s.Without(k)
	}
	return s.With(k)
}

// ToggleGroup flips a set of tables together: when all of them are selected
// they are all removed, otherwise all are added.
func (s Selection) ToggleGroup(tables []domain.EntityKind) Selection {
	if allSelected(tables, s) {
		return s.Without(tables...)
	}
	return s.With(tables...)
}

// State is the tri-state indicator of a group.
type State string

const (
	StateNone State = "none"
	StateSome State = "some"
	StateAll  State = "all"
)

// IsGroupFullySelected reports whether every table of g is selected.
func IsGroupFullySelected(g Group, s Selection) bool {
	return allSelected(g.Tables, s)
}

// IsGroupPartiallySelected reports whether at least one table of g is
// selected. A fully selected group is also partially selected.
func IsGroupPartiallySelected(g Group, s Selection) bool {
	for _, t := range g.Tables {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// GroupState derives the tri-state of g under s.
func GroupState(g Group, s Selection) State {
	switch {
	case IsGroupFullySelected(g, s):
		return StateAll
	case IsGroupPartiallySelected(g, s):
		return StateSome
	}
	return StateNone
}

func allSelected(tables []domain.EntityKind, s Selection) bool {
	if len(tables) == 0 {
		return false
	}
	for _, t := range tables {
		if !s.Has(t) {
			return false
		}
	}
	return true
}
