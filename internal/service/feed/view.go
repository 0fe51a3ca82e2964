package feed

import (
	"time"

	"github.com/heartmarshall/activityfeed/internal/activity/describe"
	"github.com/heartmarshall/activityfeed/internal/activity/identity"
	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// Item is one rendered feed entry.
type Item struct {
	ID           string               `json:"id"`
	Table        string               `json:"table"`
	Operation    domain.Operation     `json:"operation"`
	IconKey      string               `json:"icon"`
	ColorClass   string               `json:"color_class"`
	Description  describe.Description `json:"description"`
	ActorDisplay string               `json:"actor"`
	Timestamp    time.Time            `json:"timestamp"`
	ExtraDetail  string               `json:"extra_detail,omitempty"`
}

// State is a snapshot of the controller's status flags.
type State struct {
	Loading        bool
	LoadingMore    bool
	Err            error
	HasMore        bool
	Limit          int
	SelectedTables []domain.EntityKind
}

// GroupView is a filter group with its derived tri-state.
type GroupView struct {
	Name   string              `json:"name"`
	Tables []domain.EntityKind `json:"tables"`
	State  taxonomy.State      `json:"state"`
}

// Items renders the current record list, newest first as returned by the
// log source.
func (c *Controller) Items() []Item {
	c.mu.Lock()
	records := c.records
	viewer := c.viewer
	c.mu.Unlock()

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, c.item(rec, viewer))
	}
	return items
}

func (c *Controller) item(rec domain.LogRecord, viewer *domain.Identity) Item {
	kind := domain.EntityKind(rec.TableName)
	d := c.describer.Describe(rec, viewer)
	return Item{
		ID:           rec.ID,
		Table:        rec.TableName,
		Operation:    rec.Operation,
		IconKey:      kind.Icon(),
		ColorClass:   kind.ColorClass(),
		Description:  d,
		ActorDisplay: identity.ChangedBy(rec, viewer),
		Timestamp:    rec.CreatedAt,
		ExtraDetail:  d.Detail,
	}
}

// State returns the current status flags.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Loading:        c.loading,
		LoadingMore:    c.loadingMore,
		Err:            c.err,
		HasMore:        c.hasMore,
		Limit:          c.limit,
		SelectedTables: c.selection.Tables(),
	}
}

// Selection returns the current table filter.
func (c *Controller) Selection() taxonomy.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Groups returns every filter group with its state under the current
// selection.
func (c *Controller) Groups() []GroupView {
	return GroupViews(c.Selection())
}

// GroupViews derives the group tri-states for sel.
func GroupViews(sel taxonomy.Selection) []GroupView {
	groups := taxonomy.Groups()
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupView{Name: g.Name, Tables: g.Tables, State: taxonomy.GroupState(g, sel)})
	}
	return out
}
