package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/internal/service/feed"
)

// logSource is the read side of the activity log the feed renders.
type logSource interface {
	FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error)
}

// FeedHandler serves the rendered activity feed. Every request gets its own
// controller; nothing is shared between viewers.
type FeedHandler struct {
	source   logSource
	opts     []feed.Option
	pageSize int
	log      *slog.Logger
}

// NewFeedHandler creates a FeedHandler. opts are applied to every
// per-request controller.
func NewFeedHandler(source logSource, pageSize int, logger *slog.Logger, opts ...feed.Option) *FeedHandler {
	if pageSize < 1 {
		pageSize = feed.DefaultPageSize
	}
	return &FeedHandler{
		source:   source,
		opts:     append([]feed.Option{feed.WithPageSize(pageSize)}, opts...),
		pageSize: pageSize,
		log:      logger.With("handler", "feed"),
	}
}

type feedResponse struct {
	Items          []feed.Item         `json:"items"`
	HasMore        bool                `json:"has_more"`
	Limit          int                 `json:"limit"`
	SelectedTables []domain.EntityKind `json:"selected_tables"`
}

type groupsResponse struct {
	Groups         []feed.GroupView    `json:"groups"`
	SelectedTables []domain.EntityKind `json:"selected_tables"`
}

// List handles GET /api/v1/activity?tables=a,b&limit=N.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionParam(r)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	limit, err := h.limitParam(r)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	ctl := feed.NewController(r.Context(), h.log, h.source, feed.CtxViewer{}, h.opts...)
	defer ctl.Close()

	if err := ctl.Load(r.Context(), limit, sel, true); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	state := ctl.State()
	writeJSON(w, http.StatusOK, feedResponse{
		Items:          ctl.Items(),
		HasMore:        state.HasMore,
		Limit:          state.Limit,
		SelectedTables: nonNil(state.SelectedTables),
	})
}

// Groups handles GET /api/v1/activity/groups?tables=a,b. It needs no log
// access: group states derive from the selection alone.
func (h *FeedHandler) Groups(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionParam(r)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{
		Groups:         feed.GroupViews(sel),
		SelectedTables: nonNil(sel.Tables()),
	})
}

// selectionParam reads ?tables=. A missing parameter selects every table;
// an explicitly empty one selects none, which the source treats as no filter.
func selectionParam(r *http.Request) (taxonomy.Selection, error) {
	raw, ok := r.URL.Query()["tables"]
	if !ok {
		return taxonomy.All(), nil
	}
	return taxonomy.ParseSelection(strings.Join(raw, ","))
}

func (h *FeedHandler) limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.pageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("limit", "must be an integer")
	}
	// Range is checked by the controller.
	return n, nil
}

func nonNil(tables []domain.EntityKind) []domain.EntityKind {
	if tables == nil {
		return []domain.EntityKind{}
	}
	return tables
}
