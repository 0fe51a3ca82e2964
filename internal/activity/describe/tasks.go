package describe

import (
	"github.com/heartmarshall/activityfeed/internal/activity/fielddiff"
	"github.com/heartmarshall/activityfeed/internal/activity/identity"
	"github.com/heartmarshall/activityfeed/internal/activity/links"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// detailLen bounds the comment excerpt shown under a feed item.
const detailLen = 120

var taskFields = fielddiff.Spec{
	{Column: "title", Kind: fielddiff.Truncated},
	{Column: "description", Kind: fielddiff.Truncated},
	{Column: "status"},
	{Column: "priority"},
	{Column: "due_date", Kind: fielddiff.Date},
	{Column: "milestone_id", Label: "milestone", Display: "milestone_name"},
	{Column: "attachments_count", Kind: fielddiff.Count},
}

var commentFields = fielddiff.Spec{
	{Column: "comment", Label: "text", Kind: fielddiff.Truncated},
}

func describeTask(in input, fields fielddiff.Spec) Description {
	rec := in.rec
	task := links.Task(rec)
	title := links.TaskTitle(rec)

	verb, prep := "Modified", "in"
	var changes []domain.ChangeField
	switch in.op() {
	case domain.OperationInsert:
		verb = "Created"
	case domain.OperationUpdate:
		verb = "Updated"
		changes = in.changes(fields)
	case domain.OperationDelete:
		verb, prep = "Deleted", "from"
	}

	s := newSentence(verb+" ").ref("task", task, title).
		scope(prep, "project", links.Project(rec), links.ProjectName(rec))
	return Description{
		Sentence:   s.build(),
		Changes:    changes,
		Connection: parentConnection(rec),
	}
}

// parentConnection is "Subtask of {parent}" for tasks that have a parent,
// nil otherwise.
func parentConnection(rec domain.LogRecord) Template {
	if links.ParentTaskID(rec) == "" {
		return nil
	}
	name := rec.RelatedSnapshot(domain.RelatedParentTask).Text("title")
	return newSentence("Subtask of ").ref("task", links.ParentTask(rec), name).build()
}

func describeAssignment(in input, _ fielddiff.Spec) Description {
	rec := in.rec
	assignee := assigneeOf(rec)
	self := identity.Matches(assignee, in.viewer)
	label := identity.Label(assignee, in.viewer, "someone")
	profile := links.Profile(rec)

	task := links.Task(rec)
	title := links.TaskTitle(rec)
	project := links.Project(rec)
	projectName := links.ProjectName(rec)

	switch in.op() {
	case domain.OperationInsert:
		s := newSentence("Assigned ").person(profile, label, self).text(" to ").
			ref("task", task, title).scope("in", "project", project, projectName)
		return Description{Sentence: s.build()}
	case domain.OperationDelete:
		s := newSentence("Unassigned ").person(profile, label, self).text(" from ").
			ref("task", task, title).scope("in", "project", project, projectName)
		return Description{Sentence: s.build()}
	}
	s := newSentence("Modified assignment for ").person(profile, label, self)
	return Description{Sentence: s.build()}
}

func assigneeOf(rec domain.LogRecord) identity.Subject {
	assignment := rec.RelatedSnapshot(domain.RelatedAssignment)
	user := rec.RelatedSnapshot(domain.RelatedUser)

	sub := identity.Subject{ID: assignment.ID("user_id")}
	if sub.ID == "" {
		sub.ID = rec.NewData.ID("user_id")
	}
	if sub.ID == "" {
		sub.ID = rec.OldData.ID("user_id")
	}
	if uid := user.ID("id"); uid == "" || uid == sub.ID {
		sub.Name = user.Text("name")
		sub.Email = user.Text("email")
	}
	return sub
}

func describeTaskLabel(in input, _ fielddiff.Spec) Description {
	rec := in.rec
	label := links.Label(rec)
	labelName := links.LabelName(rec)
	task := links.Task(rec)
	title := links.TaskTitle(rec)

	switch in.op() {
	case domain.OperationInsert:
		s := newSentence("Added ").ref("label", label, labelName).text(" to ").ref("task", task, title)
		return Description{Sentence: s.build()}
	case domain.OperationDelete:
		s := newSentence("Removed ").ref("label", label, labelName).text(" from ").ref("task", task, title)
		return Description{Sentence: s.build()}
	}
	return Description{Sentence: newSentence("Modified labels on ").ref("task", task, title).build()}
}

func describeComment(in input, fields fielddiff.Spec) Description {
	rec := in.rec
	task := links.Task(rec)
	title := links.TaskTitle(rec)

	switch in.op() {
	case domain.OperationInsert:
		s := newSentence("Commented on ").ref("task", task, title).
			scope("in", "project", links.Project(rec), links.ProjectName(rec))
		return Description{
			Sentence: s.build(),
			Detail:   fielddiff.Truncate(commentText(rec.NewData), detailLen),
		}
	case domain.OperationUpdate:
		changes := in.changes(fields)
		verb := "Updated"
		if len(changes) > 0 {
			verb = "Edited"
		}
		s := newSentence(verb+" a comment on ").ref("task", task, title)
		return Description{Sentence: s.build(), Changes: changes}
	case domain.OperationDelete:
		s := newSentence("Deleted a comment from ").ref("task", task, title)
		return Description{
			Sentence: s.build(),
			Detail:   fielddiff.Truncate(commentText(rec.OldData), detailLen),
		}
	}
	return Description{Sentence: newSentence("Modified a comment on ").ref("task", task, title).build()}
}

func commentText(s domain.Snapshot) string {
	if v := s.Text("comment"); v != "" {
		return v
	}
	return s.Text("content")
}
