package describe

import (
	"github.com/heartmarshall/activityfeed/internal/activity/fielddiff"
	"github.com/heartmarshall/activityfeed/internal/activity/links"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

var projectFields = fielddiff.Spec{
	{Column: "name", Kind: fielddiff.Truncated},
	{Column: "description", Kind: fielddiff.Truncated},
}

var milestoneFields = fielddiff.Spec{
	{Column: "name"},
	{Column: "description", Kind: fielddiff.Truncated},
	{Column: "due_date", Kind: fielddiff.Date},
	{Column: "all_tasks_count", Kind: fielddiff.Count},
	{Column: "completed_tasks_count", Kind: fielddiff.Count},
}

func describeProject(in input, fields fielddiff.Spec) Description {
	project := links.Project(in.rec)
	name := links.ProjectName(in.rec)

	switch in.op() {
	case domain.OperationInsert:
		return Description{Sentence: newSentence("Created ").ref("project", project, name).build()}
	case domain.OperationUpdate:
		return Description{
			Sentence: newSentence("Updated ").ref("project", project, name).build(),
			Changes:  in.changes(fields),
		}
	case domain.OperationDelete:
		return Description{Sentence: newSentence("Deleted ").ref("project", project, name).build()}
	}
	return Description{Sentence: newSentence("Modified ").ref("project", project, name).build()}
}

func describeMilestone(in input, fields fielddiff.Spec) Description {
	milestone := links.Milestone(in.rec)
	name := in.rec.Current().Text("name")
	project := links.Project(in.rec)
	projectName := links.ProjectName(in.rec)

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

	s := newSentence(verb+" ").ref("milestone", milestone, name).
		scope(prep, "project", project, projectName)
	return Description{Sentence: s.build(), Changes: changes}
}
