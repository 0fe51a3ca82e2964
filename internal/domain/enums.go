package domain

import "fmt"

// EntityKind identifies one of the audited tables an activity log record can
// describe.
type EntityKind string

const (
	EntityKindProjects           EntityKind = "projects"
	EntityKindTasks              EntityKind = "tasks"
	EntityKindProjectMembers     EntityKind = "project_members"
	EntityKindFiles              EntityKind = "files"
	EntityKindAssignments        EntityKind = "assignments"
	EntityKindPendingInvitations EntityKind = "pending_project_invitations"
	EntityKindComments           EntityKind = "comments"
	EntityKindMilestones         EntityKind = "milestones"
	EntityKindTaskLabels         EntityKind = "task_labels"
	EntityKindUsers              EntityKind = "users"
)

// entityKinds is the catalog order. Selections and group listings follow it.
var entityKinds = []EntityKind{
	EntityKindProjects,
	EntityKindTasks,
	EntityKindProjectMembers,
	EntityKindFiles,
	EntityKindAssignments,
	EntityKindPendingInvitations,
	EntityKindComments,
	EntityKindMilestones,
	EntityKindTaskLabels,
	EntityKindUsers,
}

type kindMeta struct {
	label    string
	icon     string
	color    string
	relation Relation
}

var kindCatalog = map[EntityKind]kindMeta{
	EntityKindProjects:           {label: "Project", icon: "folder", color: "text-blue-600", relation: RelatedProject},
	EntityKindTasks:              {label: "Task", icon: "check-square", color: "text-green-600", relation: RelatedTask},
	EntityKindProjectMembers:     {label: "Project Member", icon: "users", color: "text-purple-600", relation: RelatedProjectMember},
	EntityKindFiles:              {label: "File", icon: "file", color: "text-orange-600", relation: RelatedFile},
	EntityKindAssignments:        {label: "Task Assignment", icon: "user-check", color: "text-indigo-600", relation: RelatedAssignment},
	EntityKindPendingInvitations: {label: "Project Invitation", icon: "mail", color: "text-pink-600", relation: RelatedInvitation},
	EntityKindComments:           {label: "Comment", icon: "message-square", color: "text-yellow-600", relation: RelatedComment},
	EntityKindMilestones:         {label: "Milestone", icon: "flag", color: "text-red-600", relation: RelatedMilestone},
	EntityKindTaskLabels:         {label: "Task Label", icon: "tag", color: "text-teal-600", relation: RelatedTaskLabel},
	EntityKindUsers:              {label: "User", icon: "user", color: "text-gray-600", relation: RelatedUser},
}

// Fallback presentation tokens for tables outside the catalog.
const (
	DefaultIcon  = "activity"
	DefaultColor = "text-gray-500"
)

// AllEntityKinds returns every supported kind in catalog order.
func AllEntityKinds() []EntityKind {
	out := make([]EntityKind, len(entityKinds))
	copy(out, entityKinds)
	return out
}

// ParseEntityKind converts a table name into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown table %q: %w", s, ErrValidation)
	}
	return k, nil
}

func (k EntityKind) String() string { return string(k) }

func (k EntityKind) IsValid() bool {
	_, ok := kindCatalog[k]
	return ok
}

// Label is the singular display label, e.g. "Task Assignment".
func (k EntityKind) Label() string { return kindCatalog[k].label }

// Icon is the presentation icon key. Unknown kinds get DefaultIcon.
func (k EntityKind) Icon() string {
	if m, ok := kindCatalog[k]; ok {
		return m.icon
	}
	return DefaultIcon
}

// ColorClass is the presentation colour token. Unknown kinds get DefaultColor.
func (k EntityKind) ColorClass() string {
	if m, ok := kindCatalog[k]; ok {
		return m.color
	}
	return DefaultColor
}

// Relation is the side-load key under which a snapshot of this kind is
// attached to records of other kinds.
func (k EntityKind) Relation() Relation { return kindCatalog[k].relation }

// Operation is the kind of mutation recorded by an activity log record.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) String() string { return string(o) }

func (o Operation) IsValid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Relation names a denormalized entity the log API attaches to a record.
type Relation string

const (
	RelatedProject       Relation = "project"
	RelatedTask          Relation = "task"
	RelatedParentTask    Relation = "parent_task"
	RelatedProjectMember Relation = "project_member"
	RelatedFile          Relation = "file"
	RelatedAssignment    Relation = "assignment"
	RelatedInvitation    Relation = "invitation"
	RelatedComment       Relation = "comment"
	RelatedMilestone     Relation = "milestone"
	RelatedTaskLabel     Relation = "task_label"
	RelatedLabel         Relation = "label"
	RelatedUser          Relation = "user"
)

func (r Relation) String() string { return string(r) }

func (r Relation) IsValid() bool {
	switch r {
	case RelatedProject, RelatedTask, RelatedParentTask, RelatedProjectMember,
		RelatedFile, RelatedAssignment, RelatedInvitation, RelatedComment,
		RelatedMilestone, RelatedTaskLabel, RelatedLabel, RelatedUser:
		return true
	}
	return false
}
