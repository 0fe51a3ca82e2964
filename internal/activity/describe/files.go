package describe

import (
	"github.com/heartmarshall/activityfeed/internal/activity/fielddiff"
	"github.com/heartmarshall/activityfeed/internal/activity/links"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

var fileFields = fielddiff.Spec{
	{Column: "name"},
	{Column: "description", Kind: fielddiff.Truncated},
}

// fileContext is where a file lives: a task when it has a task_id,
// otherwise its project.
type fileContext struct {
	noun string
	link *links.Link
	name string
}

func fileContextOf(rec domain.LogRecord) fileContext {
	if links.FileTaskID(rec) != "" {
		return fileContext{noun: "task", link: links.Task(rec), name: links.TaskTitle(rec)}
	}
	return fileContext{noun: "project", link: links.Project(rec), name: links.ProjectName(rec)}
}

func describeFile(in input, fields fielddiff.Spec) Description {
	rec := in.rec
	ctx := fileContextOf(rec)
	file := links.File(rec)
	name := links.FileName(rec)

	verb, prep := "Modified", "in"
	var changes []domain.ChangeField
	switch in.op() {
	case domain.OperationInsert:
		verb, prep = "Uploaded", "to"
	case domain.OperationUpdate:
		verb = "Updated"
		changes = in.changes(fields)
	case domain.OperationDelete:
		verb, prep = "Deleted", "from"
	}

	s := newSentence(verb+" ").ref("file", file, name).scope(prep, ctx.noun, ctx.link, ctx.name)
	return Description{Sentence: s.build(), Changes: changes}
}
