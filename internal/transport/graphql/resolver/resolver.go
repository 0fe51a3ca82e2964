// Package resolver answers the GraphQL feed queries with the same per-request
// controller the REST handlers use.
package resolver

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/internal/service/feed"
)

// logSource defines what the resolver needs from the activity log.
type logSource interface {
	FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error)
}

// Resolver is the root resolver.
type Resolver struct {
	source   logSource
	opts     []feed.Option
	pageSize int
	log      *slog.Logger
}

// NewResolver creates a Resolver. opts are applied to every per-request
// controller.
func NewResolver(log *slog.Logger, source logSource, pageSize int, opts ...feed.Option) *Resolver {
	if pageSize < 1 {
		pageSize = feed.DefaultPageSize
	}
	return &Resolver{
		source:   source,
		opts:     append([]feed.Option{feed.WithPageSize(pageSize)}, opts...),
		pageSize: pageSize,
		log:      log.With("component", "graphql"),
	}
}

// Feed is the result of the activity query.
type Feed struct {
	Items          []feed.Item
	HasMore        bool
	Limit          int
	SelectedTables []domain.EntityKind
}

// Groups is the result of the activityGroups query.
type Groups struct {
	Groups         []feed.GroupView
	SelectedTables []domain.EntityKind
}

// Activity loads the first limit records for tables. A nil tables slice
// selects every table. A nil limit means one page.
func (r *Resolver) Activity(ctx context.Context, tables []string, limit *int) (*Feed, error) {
	sel, err := selection(tables)
	if err != nil {
		return nil, err
	}
	n := r.pageSize
	if limit != nil {
		n = *limit
	}

	ctl := feed.NewController(ctx, r.log, r.source, feed.CtxViewer{}, r.opts...)
	defer ctl.Close()

	if err := ctl.Load(ctx, n, sel, true); err != nil {
		return nil, err
	}
	state := ctl.State()
	return &Feed{
		Items:          ctl.Items(),
		HasMore:        state.HasMore,
		Limit:          state.Limit,
		SelectedTables: state.SelectedTables,
	}, nil
}

// ActivityGroups reports every filter group's state for tables.
func (r *Resolver) ActivityGroups(_ context.Context, tables []string) (*Groups, error) {
	sel, err := selection(tables)
	if err != nil {
		return nil, err
	}
	return &Groups{Groups: feed.GroupViews(sel), SelectedTables: sel.Tables()}, nil
}

func selection(tables []string) (taxonomy.Selection, error) {
	if tables == nil {
		return taxonomy.All(), nil
	}
	kinds := make([]domain.EntityKind, 0, len(tables))
	for _, t := range tables {
		k, err := domain.ParseEntityKind(t)
		if err != nil {
			return taxonomy.Selection{}, domain.NewValidationError("tables", err.Error())
		}
		kinds = append(kinds, k)
	}
	return taxonomy.NewSelection(kinds...), nil
}
