package links

import (
	"testing"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

type recordingNavigator struct{ paths []string }

func (n *recordingNavigator) GoTo(path string) { n.paths = append(n.paths, path) }

func TestProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  domain.LogRecord
		want *Link
	}{
		{
			name: "related project preferred",
			rec: domain.LogRecord{
				TableName: "tasks",
				NewData:   domain.Snapshot{"project_id": "p-raw"},
				Related:   map[domain.Relation]domain.Snapshot{domain.RelatedProject: {"id": "p1", "name": "Apollo"}},
			},
			want: &Link{Kind: KindProject, Path: "/projects/p1", Label: "Apollo"},
		},
		{
			name: "projects row uses its own id and name",
			rec: domain.LogRecord{
				TableName: "projects",
				OldData:   domain.Snapshot{"id": float64(7), "name": "Old"},
				NewData:   domain.Snapshot{"id": float64(7), "name": "New"},
			},
			want: &Link{Kind: KindProject, Path: "/projects/7", Label: "New"},
		},
		{
			name: "delete falls back to old data",
			rec: domain.LogRecord{
				TableName: "milestones",
				Operation: domain.OperationDelete,
				OldData:   domain.Snapshot{"project_id": "p2"},
			},
			want: &Link{Kind: KindProject, Path: "/projects/p2", Label: "#p2"},
		},
		{
			name: "no project id",
			rec:  domain.LogRecord{TableName: "tasks", NewData: domain.Snapshot{"id": "t1"}},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertLink(t, Project(tt.rec), tt.want)
		})
	}
}

func TestTask(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{
		TableName: "comments",
		NewData:   domain.Snapshot{"task_id": "t1", "project_id": "p1"},
		Related:   map[domain.Relation]domain.Snapshot{domain.RelatedTask: {"id": "t1", "title": "Ship it", "project_id": "p9"}},
	}
	assertLink(t, Task(rec), &Link{Kind: KindTask, Path: "/projects/p9/tasks/t1", Label: "Ship it"})

	own := domain.LogRecord{
		TableName: "tasks",
		OldData:   domain.Snapshot{"id": "t2", "project_id": "p1", "title": "Before"},
		NewData:   domain.Snapshot{"id": "t2", "project_id": "p1", "title": "After"},
	}
	assertLink(t, Task(own), &Link{Kind: KindTask, Path: "/projects/p1/tasks/t2", Label: "After"})

	noProject := domain.LogRecord{TableName: "comments", NewData: domain.Snapshot{"task_id": "t1"}}
	assertLink(t, Task(noProject), nil)

	noTask := domain.LogRecord{TableName: "comments", NewData: domain.Snapshot{"project_id": "p1"}}
	assertLink(t, Task(noTask), nil)
}

func TestParentTask(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{
		TableName: "tasks",
		NewData:   domain.Snapshot{"id": "t2", "project_id": "p1", "parent_task_id": "t1"},
		Related:   map[domain.Relation]domain.Snapshot{domain.RelatedParentTask: {"id": "t1", "title": "Epic"}},
	}
	assertLink(t, ParentTask(rec), &Link{Kind: KindTask, Path: "/projects/p1/tasks/t1", Label: "Epic"})

	orphan := domain.LogRecord{TableName: "tasks", NewData: domain.Snapshot{"id": "t2", "project_id": "p1"}}
	assertLink(t, ParentTask(orphan), nil)

	// parent_task_id on a non-task row is ignored.
	other := domain.LogRecord{TableName: "files", NewData: domain.Snapshot{"project_id": "p1", "parent_task_id": "t1"}}
	assertLink(t, ParentTask(other), nil)
}

func TestMilestone(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{
		TableName: "milestones",
		NewData:   domain.Snapshot{"id": "m1", "project_id": "p1", "name": "Beta"},
	}
	assertLink(t, Milestone(rec), &Link{Kind: KindMilestone, Path: "/projects/p1/milestones/m1", Label: "Beta"})

	missingProject := domain.LogRecord{TableName: "milestones", NewData: domain.Snapshot{"id": "m1"}}
	assertLink(t, Milestone(missingProject), nil)
}

func TestFile(t *testing.T) {
	t.Parallel()

	projectFile := domain.LogRecord{
		TableName: "files",
		NewData:   domain.Snapshot{"id": "f1", "project_id": "p1", "name": "spec.pdf"},
	}
	assertLink(t, File(projectFile), &Link{Kind: KindFile, Path: "/projects/p1/files/f1", Label: "spec.pdf"})

	taskFile := domain.LogRecord{
		TableName: "files",
		Operation: domain.OperationDelete,
		OldData:   domain.Snapshot{"id": "f2", "project_id": "p1", "task_id": "t5", "file_name": "a b.png"},
	}
	assertLink(t, File(taskFile), &Link{Kind: KindFile, Path: "/projects/p1/tasks/t5/files/f2", Label: "a b.png"})

	noID := domain.LogRecord{TableName: "files", NewData: domain.Snapshot{"project_id": "p1"}}
	assertLink(t, File(noID), nil)
}

func TestLabel(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{
		TableName: "task_labels",
		NewData:   domain.Snapshot{"task_id": "t1", "label_id": "l1"},
		Related: map[domain.Relation]domain.Snapshot{
			domain.RelatedLabel: {"id": "l1", "name": "bug", "project_id": "p1"},
		},
	}
	assertLink(t, Label(rec), &Link{Kind: KindLabel, Path: "/projects/p1/labels/l1", Label: "bug"})

	noProject := domain.LogRecord{TableName: "task_labels", NewData: domain.Snapshot{"label_id": "l1"}}
	assertLink(t, Label(noProject), nil)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{
		TableName: "assignments",
		NewData:   domain.Snapshot{"user_id": "u2"},
		Related:   map[domain.Relation]domain.Snapshot{domain.RelatedUser: {"id": "u2", "name": "Bob"}},
	}
	assertLink(t, Profile(rec), &Link{Kind: KindProfile, Path: "/users/u2", Label: "Bob"})
	assertLink(t, Profile(domain.LogRecord{TableName: "assignments"}), nil)
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	t.Parallel()

	rec := domain.LogRecord{TableName: "projects", NewData: domain.Snapshot{"id": "a/b"}}
	assertLink(t, Project(rec), &Link{Kind: KindProject, Path: "/projects/a%2Fb", Label: "#a/b"})
}

func TestLinkSafety_NoUndefinedSegments(t *testing.T) {
	t.Parallel()

	empty := []domain.LogRecord{
		{},
		{TableName: "tasks", NewData: domain.Snapshot{"id": "", "project_id": "  "}},
		{TableName: "files", NewData: domain.Snapshot{"id": nil, "project_id": nil}},
		{TableName: "unknown_table", NewData: domain.Snapshot{"id": "5"}},
	}
	resolvers := map[string]func(domain.LogRecord) *Link{
		"project": Project, "task": Task, "milestone": Milestone,
		"file": File, "label": Label, "parent": ParentTask,
	}
	for i, rec := range empty {
		for name, resolve := range resolvers {
			if got := resolve(rec); got != nil {
				t.Errorf("record %d: %s resolved to %+v, want nil", i, name, got)
			}
		}
	}
}

func TestFollow(t *testing.T) {
	t.Parallel()

	nav := &recordingNavigator{}
	link := &Link{Kind: KindProject, Path: "/projects/p1"}
	if !link.Follow(nav) {
		t.Fatal("Follow() = false")
	}
	var missing *Link
	if missing.Follow(nav) {
		t.Fatal("nil link followed")
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/projects/p1" {
		t.Errorf("paths = %v", nav.paths)
	}
}

func assertLink(t *testing.T, got, want *Link) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("got %+v, want nil", got)
		}
		return
	}
	if got == nil {
		t.Fatalf("got nil, want %+v", want)
	}
	if *got != *want {
		t.Fatalf("got %+v, want %+v", *got, *want)
	}
}
