package feed

import (
	"errors"
	"time"

	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// ToggleTableFilter flips one table in the filter and schedules a reload.
func (c *Controller) ToggleTableFilter(k domain.EntityKind) error {
	if !k.IsValid() {
		return domain.NewValidationError("table", "unknown table "+string(k))
	}
	c.changeSelection(func(s taxonomy.Selection) taxonomy.Selection { return s.Toggle(k) })
	return nil
}

// ToggleGroupFilter flips every table of the named group together.
func (c *Controller) ToggleGroupFilter(name string) error {
	for _, g := range taxonomy.Groups() {
		if g.Name == name {
			c.changeSelection(func(s taxonomy.Selection) taxonomy.Selection { return s.ToggleGroup(g.Tables) })
			return nil
		}
	}
	return domain.NewValidationError("group", "unknown group "+name)
}

// SelectAll selects every table.
func (c *Controller) SelectAll() {
	c.changeSelection(func(taxonomy.Selection) taxonomy.Selection { return taxonomy.All() })
}

// ClearAll removes every table from the filter.
func (c *Controller) ClearAll() {
	c.changeSelection(func(taxonomy.Selection) taxonomy.Selection { return taxonomy.NewSelection() })
}

// changeSelection applies fn, invalidates any in-flight request and
// (re)starts the debounce timer. Changes inside one debounce window
// coalesce into a single reload.
func (c *Controller) changeSelection(fn func(taxonomy.Selection) taxonomy.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection = fn(c.selection)
	c.limit = c.pageSize
	c.gen++
	c.loadingMore = false
	if c.closed || c.err != nil {
		c.loading = false
		return
	}
	c.loading = true

	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.reload)
}

// reload runs on the debounce timer goroutine. load re-checks closed under
// the lock, so a Close racing the timer issues no fetch.
func (c *Controller) reload() {
	ctx := c.mountCtx
	if err := c.load(ctx, c.pageSize, nil, true); err != nil && !errors.Is(err, ctx.Err()) {
		c.log.WarnContext(ctx, "debounced reload failed", "error", err)
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
