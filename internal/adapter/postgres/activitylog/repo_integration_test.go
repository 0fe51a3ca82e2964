package activitylog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgres "github.com/heartmarshall/activityfeed/internal/adapter/postgres"
	"github.com/heartmarshall/activityfeed/internal/adapter/postgres/activitylog"
	"github.com/heartmarshall/activityfeed/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

func TestRepo_Integration_FetchPage(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := activitylog.New(pool)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []domain.LogRecord{
		{TableName: "projects", Operation: domain.OperationInsert, NewData: domain.Snapshot{"id": "p1", "name": "Apollo"}, CreatedAt: base},
		{TableName: "tasks", Operation: domain.OperationInsert, NewData: domain.Snapshot{"id": "t1", "title": "Ship"}, CreatedAt: base.Add(time.Minute),
			Related: map[domain.Relation]domain.Snapshot{domain.RelatedProject: {"id": "p1", "name": "Apollo"}}},
		{TableName: "comments", Operation: domain.OperationDelete, OldData: domain.Snapshot{"id": "c1", "comment": "bye"}, CreatedAt: base.Add(2 * time.Minute),
			Actor: domain.Actor{ID: "u1", Email: "a@x.com"}},
	}
	for _, rec := range seed {
		testhelper.SeedActivityLog(t, pool, rec)
	}

	t.Run("newest first", func(t *testing.T) {
		page, err := repo.FetchPage(ctx, "", nil, 10)
		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.False(t, page.HasMore)
		assert.Equal(t, "comments", page.Records[0].TableName)
		assert.Equal(t, "projects", page.Records[2].TableName)
		assert.Nil(t, page.Records[0].NewData)
		assert.Equal(t, domain.Actor{ID: "u1", Email: "a@x.com"}, page.Records[0].Actor)
	})

	t.Run("limit reports has_more", func(t *testing.T) {
		page, err := repo.FetchPage(ctx, "", nil, 2)
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.True(t, page.HasMore)
	})

	t.Run("table filter", func(t *testing.T) {
		page, err := repo.FetchPage(ctx, "", []domain.EntityKind{domain.EntityKindTasks}, 10)
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		rec := page.Records[0]
		assert.Equal(t, "Ship", rec.NewData.Text("title"))
		assert.Equal(t, "Apollo", rec.RelatedSnapshot(domain.RelatedProject).Text("name"))
		assert.True(t, rec.CreatedAt.Equal(base.Add(time.Minute)))
	})
}

func TestRepo_Integration_AppendInTx(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := activitylog.New(pool)
	tm := postgres.NewTxManager(pool)
	ctx := context.Background()

	var id string
	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = repo.Append(ctx, domain.LogRecord{
			TableName: "milestones",
			Operation: domain.OperationUpdate,
			OldData:   domain.Snapshot{"name": "M1"},
			NewData:   domain.Snapshot{"name": "M2"},
			Actor:     domain.Actor{Name: "Alice"},
		})
		return err
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	page, err := repo.FetchPage(ctx, "", []domain.EntityKind{domain.EntityKindMilestones}, 5)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, id, page.Records[0].ID)
	assert.Equal(t, "Alice", page.Records[0].Actor.Name)
	assert.Equal(t, "M2", page.Records[0].NewData.Text("name"))
}
