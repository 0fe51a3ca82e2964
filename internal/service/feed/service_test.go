package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

//go:generate moq -out log_source_mock_test.go -pkg feed . logSource

var viewer = &domain.Identity{ID: "u1", Email: "a@x.com", Name: "Alice"}

func newTestController(t *testing.T, src *logSourceMock, opts ...Option) *Controller {
	t.Helper()
	c := NewController(context.Background(), slog.Default(), src, StaticViewer{Identity: viewer, Token: "tok"}, opts...)
	t.Cleanup(c.Close)
	return c
}

func records(n int, prefix string) []domain.LogRecord {
	out := make([]domain.LogRecord, n)
	for i := range out {
		out[i] = domain.LogRecord{
			ID:        fmt.Sprintf("%s%d", prefix, i),
			TableName: "tasks",
			Operation: domain.OperationInsert,
			NewData:   domain.Snapshot{"id": fmt.Sprintf("t%d", i), "project_id": "p1", "title": "Task"},
		}
	}
	return out
}

func pageOf(limit int, total int, prefix string) domain.LogPage {
	n := limit
	if n > total {
		n = total
	}
	return domain.LogPage{Records: records(n, prefix), HasMore: total > limit}
}

func TestLoad_ReplacesRecords(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return pageOf(limit, 50, "r"), nil
		},
	}
	c := newTestController(t, src)
	sel := taxonomy.NewSelection(domain.EntityKindTasks, domain.EntityKindComments)

	require.NoError(t, c.Load(context.Background(), DefaultPageSize, sel, true))

	calls := src.FetchPageCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tok", calls[0].Token)
	assert.Equal(t, 20, calls[0].Limit)
	assert.Equal(t, []domain.EntityKind{domain.EntityKindTasks, domain.EntityKindComments}, calls[0].Tables)

	st := c.State()
	assert.True(t, st.HasMore)
	assert.Equal(t, 20, st.Limit)
	assert.False(t, st.Loading)
	assert.Len(t, c.Items(), 20)
}

func TestLoad_Unauthorized(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{}
	c := NewController(context.Background(), slog.Default(), src, StaticViewer{})
	defer c.Close()

	err := c.Load(context.Background(), 20, taxonomy.NewSelection(), true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, src.FetchPageCalls())
}

func TestLoad_InvalidLimit(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &logSourceMock{})
	for _, limit := range []int{0, -1, MaxLimit + 1} {
		err := c.Load(context.Background(), limit, taxonomy.NewSelection(), true)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, "limit %d", limit)
	}
}

func TestLoad_FailureIsTerminal(t *testing.T) {
	t.Parallel()

	upstream := errors.New("connection refused")
	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return domain.LogPage{}, upstream
		},
	}
	c := newTestController(t, src)

	err := c.Load(context.Background(), 20, taxonomy.NewSelection(), true)
	require.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, upstream)

	st := c.State()
	assert.ErrorIs(t, st.Err, domain.ErrFetchFailed)
	assert.False(t, st.Loading)

	err = c.Load(context.Background(), 20, taxonomy.NewSelection(), true)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, c.LoadMore(context.Background()), domain.ErrFetchFailed)
	assert.Len(t, src.FetchPageCalls(), 1, "no retries after a failure")
}

func TestLoad_CancelledContextIsNotTerminal(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return domain.LogPage{}, ctx.Err()
		},
	}
	c := newTestController(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Load(ctx, 20, taxonomy.NewSelection(), true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, c.State().Err)
}

func TestLoadMore(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return pageOf(limit, 45, "r"), nil
		},
	}
	c := newTestController(t, src)
	sel := taxonomy.NewSelection(domain.EntityKindFiles)

	require.NoError(t, c.Load(context.Background(), 20, sel, true))
	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, 40, c.State().Limit)
	assert.Len(t, c.Items(), 40)

	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, 60, c.State().Limit)
	assert.Len(t, c.Items(), 45)
	assert.False(t, c.State().HasMore)

	// hasMore=false: no further fetch.
	require.NoError(t, c.LoadMore(context.Background()))
	calls := src.FetchPageCalls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, []domain.EntityKind{domain.EntityKindFiles}, call.Tables)
	}
}

func TestLoadMore_IgnoredWhileBusy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			if calls.Add(1) == 2 {
				<-release
			}
			return pageOf(limit, 100, "r"), nil
		},
	}
	c := newTestController(t, src)
	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(), true))

	done := make(chan error, 1)
	go func() { done <- c.LoadMore(context.Background()) }()
	require.Eventually(t, func() bool { return c.State().LoadingMore }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.LoadMore(context.Background()))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 40, c.State().Limit)
}

func TestShowLess(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return pageOf(limit, 100, "r"), nil
		},
	}
	c := newTestController(t, src)
	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(), true))
	require.NoError(t, c.LoadMore(context.Background()))
	require.Len(t, c.Items(), 40)

	c.ShowLess()
	assert.Len(t, c.Items(), 20)
	assert.Equal(t, 20, c.State().Limit)
	assert.True(t, c.State().HasMore)
	assert.Len(t, src.FetchPageCalls(), 2, "ShowLess does not fetch")
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	slow := make(chan struct{})
	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			if len(tables) == 1 && tables[0] == domain.EntityKindTasks {
				<-slow
				return pageOf(limit, 100, "stale"), nil
			}
			return pageOf(limit, 5, "fresh"), nil
		},
	}
	c := newTestController(t, src, WithMetrics(metrics))

	first := make(chan error, 1)
	go func() {
		first <- c.Load(context.Background(), 20, taxonomy.NewSelection(domain.EntityKindTasks), true)
	}()
	require.Eventually(t, func() bool { return len(src.FetchPageCalls()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(domain.EntityKindComments), true))
	close(slow)
	require.NoError(t, <-first)

	items := c.Items()
	require.Len(t, items, 5)
	for _, it := range items {
		assert.Contains(t, it.ID, "fresh")
	}
	assert.Equal(t, []domain.EntityKind{domain.EntityKindComments}, c.State().SelectedTables)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.stale))
}

func TestFilterChange_DebouncesAndResets(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			prefix := "all"
			if len(tables) > 0 {
				prefix = string(tables[0])
			}
			return pageOf(limit, 100, prefix), nil
		},
	}
	c := newTestController(t, src, WithDebounce(30*time.Millisecond))

	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(), true))
	require.NoError(t, c.LoadMore(context.Background()))
	require.Equal(t, 40, c.State().Limit)

	require.NoError(t, c.ToggleTableFilter(domain.EntityKindUsers))
	require.NoError(t, c.ToggleTableFilter(domain.EntityKindComments))
	require.NoError(t, c.ToggleTableFilter(domain.EntityKindUsers))
	assert.True(t, c.State().Loading)

	require.Eventually(t, func() bool {
		return len(src.FetchPageCalls()) == 3 && !c.State().Loading
	}, 2*time.Second, 5*time.Millisecond)

	// Give a second timer a chance to fire if coalescing were broken.
	time.Sleep(60 * time.Millisecond)
	calls := src.FetchPageCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, 20, calls[2].Limit)
	assert.Equal(t, []domain.EntityKind{domain.EntityKindComments}, calls[2].Tables)

	st := c.State()
	assert.Equal(t, 20, st.Limit)
	items := c.Items()
	require.Len(t, items, 20)
	for _, it := range items {
		assert.Contains(t, it.ID, "comments", "list is replaced, not appended")
	}
}

func TestToggleGroupFilter(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &logSourceMock{}, WithDebounce(time.Hour))

	require.NoError(t, c.ToggleGroupFilter("Tasks"))
	assert.Equal(t, []domain.EntityKind{domain.EntityKindTasks, domain.EntityKindAssignments, domain.EntityKindTaskLabels}, c.State().SelectedTables)

	var ve *domain.ValidationError
	assert.ErrorAs(t, c.ToggleGroupFilter("Nope"), &ve)
	assert.ErrorAs(t, c.ToggleTableFilter("labels"), &ve)

	groups := c.Groups()
	require.Len(t, groups, 5)
	for _, g := range groups {
		want := taxonomy.StateNone
		if g.Name == "Tasks" {
			want = taxonomy.StateAll
		}
		assert.Equal(t, want, g.State, g.Name)
	}

	c.SelectAll()
	assert.Len(t, c.State().SelectedTables, len(domain.AllEntityKinds()))
	c.ClearAll()
	assert.Empty(t, c.State().SelectedTables)
}

func TestClose_StopsPendingReload(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return domain.LogPage{}, nil
		},
	}
	c := newTestController(t, src, WithDebounce(20*time.Millisecond))

	c.SelectAll()
	c.Close()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, src.FetchPageCalls())
}

func TestClose_NoFetchAfterClose(t *testing.T) {
	t.Parallel()

	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return pageOf(limit, 50, "r"), nil
		},
	}
	c := newTestController(t, src, WithDebounce(time.Hour))
	require.NoError(t, c.Load(context.Background(), 20, taxonomy.All(), true))
	require.Len(t, src.FetchPageCalls(), 1)

	c.SelectAll()
	c.Close()

	// A debounce timer that fired just before Close still runs reload.
	c.reload()
	require.NoError(t, c.Load(context.Background(), 20, taxonomy.All(), true))
	require.NoError(t, c.LoadMore(context.Background()))

	assert.Len(t, src.FetchPageCalls(), 1)
	assert.False(t, c.State().Loading)
}

func TestItems_Assembly(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			return domain.LogPage{Records: []domain.LogRecord{
				{
					ID:        "1",
					TableName: "comments",
					Operation: domain.OperationInsert,
					NewData:   domain.Snapshot{"task_id": "t1", "project_id": "p1", "comment": "Nice"},
					Actor:     domain.Actor{ID: "u1"},
					CreatedAt: at,
				},
				{
					ID:        "2",
					TableName: "mystery",
					Operation: domain.OperationDelete,
					OldData:   domain.Snapshot{"name": "thing"},
					Actor:     domain.Actor{ID: "u2", Name: "Bob"},
				},
			}}, nil
		},
	}
	c := newTestController(t, src)
	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(), true))

	items := c.Items()
	require.Len(t, items, 2)

	assert.Equal(t, "message-square", items[0].IconKey)
	assert.Equal(t, domain.EntityKindComments.ColorClass(), items[0].ColorClass)
	assert.Equal(t, "You", items[0].ActorDisplay)
	assert.Equal(t, "Nice", items[0].ExtraDetail)
	assert.Equal(t, at, items[0].Timestamp)
	assert.Equal(t, "Commented on task #t1 in project #p1", items[0].Description.Sentence.String())

	assert.Equal(t, domain.DefaultIcon, items[1].IconKey)
	assert.Equal(t, domain.DefaultColor, items[1].ColorClass)
	assert.Equal(t, "Bob", items[1].ActorDisplay)
	assert.Equal(t, `Deleted mystery "thing"`, items[1].Description.Sentence.String())
}

func TestLoad_PartiallyDecodedRecordKeepsItsSlot(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	src := &logSourceMock{
		FetchPageFunc: func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
			page := pageOf(2, 2, "ok")
			bad := domain.LogRecord{
				ID:        "bad",
				TableName: "tasks",
				Operation: domain.OperationUpdate,
				NewData:   domain.Snapshot{"id": "t9", "title": "Fix", "project_id": "p1"},
				Actor:     domain.Actor{ID: "u2", Name: "Bob"},
				DecodeErr: errors.New("old_data: decode snapshot: not an object"),
			}
			page.Records = []domain.LogRecord{page.Records[0], bad, page.Records[1]}
			return page, nil
		},
	}
	c := newTestController(t, src, WithMetrics(metrics))

	require.NoError(t, c.Load(context.Background(), 20, taxonomy.NewSelection(), true))
	require.NoError(t, c.State().Err)

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"ok0", "bad", "ok1"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, `Updated task "Fix" in project #p1`, items[1].Description.Sentence.String())
	assert.Equal(t, "Bob", items[1].ActorDisplay)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.malformed.WithLabelValues("tasks")))
}
