// Package links derives navigation targets from the fields present on an
// activity log record. A link is only produced when every id its path needs
// is known; otherwise the resolver returns nil and callers render plain
// text.
package links

import (
	"net/url"
	"strings"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

// Kind names the entity a link points at.
type Kind string

const (
	KindProject   Kind = "project"
	KindTask      Kind = "task"
	KindMilestone Kind = "milestone"
	KindFile      Kind = "file"
	KindLabel     Kind = "label"
	KindProfile   Kind = "profile"
)

// Link is a resolved navigation target. Label falls back to "#<id>" when
// no name is known.
type Link struct {
	Kind  Kind   `json:"kind"`
	Path  string `json:"path"`
	Label string `json:"label"`
}

// Navigator moves the UI to a path. Implementations are fire-and-forget.
type Navigator interface {
	GoTo(path string)
}

// Follow navigates to the link. It reports false for a nil link.
func (l *Link) Follow(nav Navigator) bool {
	if l == nil || nav == nil {
		return false
	}
	nav.GoTo(l.Path)
	return true
}

// lookup is one place a value may come from.
type lookup struct {
	snap domain.Snapshot
	key  string
}

// first returns the first non-empty value. Order encodes precedence:
// related snapshot, then new_data, then old_data.
func first(lookups ...lookup) string {
	for _, l := range lookups {
		if v := strings.TrimSpace(l.snap.Text(l.key)); v != "" {
			return v
		}
	}
	return ""
}

func related(rec domain.LogRecord, rel domain.Relation, key string) lookup {
	return lookup{snap: rec.RelatedSnapshot(rel), key: key}
}

// own yields the new_data then old_data lookups for key, but only when the
// record's table is kind. Used for a row's own id, name or title.
func own(rec domain.LogRecord, kind domain.EntityKind, key string) []lookup {
	if rec.TableName != string(kind) {
		return nil
	}
	return data(rec, key)
}

func data(rec domain.LogRecord, key string) []lookup {
	return []lookup{{snap: rec.NewData, key: key}, {snap: rec.OldData, key: key}}
}

func chain(parts ...[]lookup) []lookup {
	var out []lookup
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func one(l lookup) []lookup { return []lookup{l} }

func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// ProjectID returns the id of the project the record belongs to, or "".
func ProjectID(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedProject, "id")),
		own(rec, domain.EntityKindProjects, "id"),
		data(rec, "project_id"),
		one(related(rec, domain.RelatedTask, "project_id")),
		one(related(rec, domain.RelatedMilestone, "project_id")),
		one(related(rec, domain.RelatedFile, "project_id")),
		one(related(rec, domain.RelatedLabel, "project_id")),
		one(related(rec, domain.RelatedProjectMember, "project_id")),
		one(related(rec, domain.RelatedInvitation, "project_id")),
	)...)
}

// ProjectName returns the best known project name, or "".
func ProjectName(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedProject, "name")),
		own(rec, domain.EntityKindProjects, "name"),
		data(rec, "project_name"),
	)...)
}

// Project resolves /projects/{project}.
func Project(rec domain.LogRecord) *Link {
	id := ProjectID(rec)
	if id == "" {
		return nil
	}
	return &Link{
		Kind:  KindProject,
		Path:  path("projects", id),
		Label: orDefault(ProjectName(rec), "#"+id),
	}
}

// TaskID returns the id of the task the record refers to, or "".
func TaskID(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedTask, "id")),
		own(rec, domain.EntityKindTasks, "id"),
		data(rec, "task_id"),
		one(related(rec, domain.RelatedFile, "task_id")),
		one(related(rec, domain.RelatedComment, "task_id")),
		one(related(rec, domain.RelatedAssignment, "task_id")),
	)...)
}

// TaskTitle returns the best known task title, or "".
func TaskTitle(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedTask, "title")),
		own(rec, domain.EntityKindTasks, "title"),
		data(rec, "task_title"),
	)...)
}

// Task resolves /projects/{project}/tasks/{task}.
func Task(rec domain.LogRecord) *Link {
	taskID := TaskID(rec)
	projectID := first(related(rec, domain.RelatedTask, "project_id"))
	if projectID == "" {
		projectID = ProjectID(rec)
	}
	if taskID == "" || projectID == "" {
		return nil
	}
	return &Link{
		Kind:  KindTask,
		Path:  path("projects", projectID, "tasks", taskID),
		Label: orDefault(TaskTitle(rec), "#"+taskID),
	}
}

// ParentTask resolves the parent of a subtask record.
func ParentTask(rec domain.LogRecord) *Link {
	parentID := ParentTaskID(rec)
	projectID := first(related(rec, domain.RelatedParentTask, "project_id"))
	if projectID == "" {
		projectID = ProjectID(rec)
	}
	if parentID == "" || projectID == "" {
		return nil
	}
	return &Link{
		Kind:  KindTask,
		Path:  path("projects", projectID, "tasks", parentID),
		Label: orDefault(first(related(rec, domain.RelatedParentTask, "title")), "#"+parentID),
	}
}

// ParentTaskID returns parent_task_id for tasks records, or "".
func ParentTaskID(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedParentTask, "id")),
		own(rec, domain.EntityKindTasks, "parent_task_id"),
	)...)
}

// Milestone resolves /projects/{project}/milestones/{milestone}.
func Milestone(rec domain.LogRecord) *Link {
	id := first(chain(
		one(related(rec, domain.RelatedMilestone, "id")),
		own(rec, domain.EntityKindMilestones, "id"),
		data(rec, "milestone_id"),
	)...)
	projectID := ProjectID(rec)
	if id == "" || projectID == "" {
		return nil
	}
	name := first(chain(
		one(related(rec, domain.RelatedMilestone, "name")),
		own(rec, domain.EntityKindMilestones, "name"),
		data(rec, "milestone_name"),
	)...)
	return &Link{
		Kind:  KindMilestone,
		Path:  path("projects", projectID, "milestones", id),
		Label: orDefault(name, "#"+id),
	}
}

// FileTaskID returns the task a file is attached to, or "" for
// project-level files.
func FileTaskID(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedFile, "task_id")),
		data(rec, "task_id"),
	)...)
}

// FileName returns the best known file name, or "".
func FileName(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedFile, "name")),
		one(related(rec, domain.RelatedFile, "file_name")),
		own(rec, domain.EntityKindFiles, "name"),
		own(rec, domain.EntityKindFiles, "file_name"),
	)...)
}

// File resolves /projects/{project}/files/{file}, or the task-scoped
// /projects/{project}/tasks/{task}/files/{file} when the file belongs to a
// task.
func File(rec domain.LogRecord) *Link {
	id := first(chain(
		one(related(rec, domain.RelatedFile, "id")),
		own(rec, domain.EntityKindFiles, "id"),
		data(rec, "file_id"),
	)...)
	projectID := ProjectID(rec)
	if id == "" || projectID == "" {
		return nil
	}
	label := orDefault(FileName(rec), "#"+id)

	if taskID := FileTaskID(rec); taskID != "" {
		return &Link{
			Kind:  KindFile,
			Path:  path("projects", projectID, "tasks", taskID, "files", id),
			Label: label,
		}
	}
	return &Link{
		Kind:  KindFile,
		Path:  path("projects", projectID, "files", id),
		Label: label,
	}
}

// Label resolves /projects/{project}/labels/{label}.
func Label(rec domain.LogRecord) *Link {
	id := first(chain(
		one(related(rec, domain.RelatedLabel, "id")),
		data(rec, "label_id"),
	)...)
	projectID := first(related(rec, domain.RelatedLabel, "project_id"))
	if projectID == "" {
		projectID = ProjectID(rec)
	}
	if id == "" || projectID == "" {
		return nil
	}
	return &Link{
		Kind:  KindLabel,
		Path:  path("projects", projectID, "labels", id),
		Label: orDefault(LabelName(rec), "#"+id),
	}
}

// LabelName returns the best known label name, or "".
func LabelName(rec domain.LogRecord) string {
	return first(chain(
		one(related(rec, domain.RelatedLabel, "name")),
		data(rec, "label_name"),
	)...)
}

// Profile resolves /users/{user} for the user the record is about.
func Profile(rec domain.LogRecord) *Link {
	id := first(chain(
		one(related(rec, domain.RelatedUser, "id")),
		own(rec, domain.EntityKindUsers, "id"),
		data(rec, "user_id"),
	)...)
	if id == "" {
		return nil
	}
	name := first(chain(
		one(related(rec, domain.RelatedUser, "name")),
		own(rec, domain.EntityKindUsers, "name"),
		one(related(rec, domain.RelatedUser, "email")),
		own(rec, domain.EntityKindUsers, "email"),
	)...)
	return &Link{
		Kind:  KindProfile,
		Path:  path("users", id),
		Label: orDefault(name, "#"+id),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
