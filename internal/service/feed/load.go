package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/heartmarshall/activityfeed/internal/activity/describe"
	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// request is one issued fetch.
type request struct {
	gen       uint64
	limit     int
	selection taxonomy.Selection
}

// Load fetches the first limit records for sel and replaces the record list
// with the response. reset clears the visible list while loading. A closed
// controller issues no fetch.
func (c *Controller) Load(ctx context.Context, limit int, sel taxonomy.Selection, reset bool) error {
	return c.load(ctx, limit, &sel, reset)
}

// load keeps the current selection when sel is nil.
func (c *Controller) load(ctx context.Context, limit int, sel *taxonomy.Selection, reset bool) error {
	if err := validateLimit(limit); err != nil {
		return err
	}

	viewer, token := c.viewers.Viewer(ctx)

	c.mu.Lock()
	if viewer == nil {
		c.loading = false
		c.mu.Unlock()
		return domain.ErrUnauthorized
	}
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	if c.closed {
		c.loading = false
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	if sel != nil {
		c.selection = *sel
	}
	c.limit = limit
	if reset {
		c.records = nil
		c.hasMore = false
		c.loading = true
	} else {
		c.loadingMore = true
	}
	req := c.issueLocked()
	c.mu.Unlock()

	return c.fetch(ctx, req, viewer, token)
}

// LoadMore raises the limit by one page and refetches against the same
// filter. It does nothing while a request is in flight or when the last
// response reported no more records.
func (c *Controller) LoadMore(ctx context.Context) error {
	viewer, token := c.viewers.Viewer(ctx)
	if viewer == nil {
		return domain.ErrUnauthorized
	}

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	if c.closed || c.loading || c.loadingMore || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	next := c.limit + c.pageSize
	if next > MaxLimit {
		next = MaxLimit
	}
	if next == c.limit {
		c.mu.Unlock()
		return nil
	}
	c.limit = next
	c.loadingMore = true
	req := c.issueLocked()
	c.mu.Unlock()

	return c.fetch(ctx, req, viewer, token)
}

// ShowLess collapses the list back to one page without fetching.
func (c *Controller) ShowLess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadingMore {
		// Drop the in-flight LoadMore so it cannot re-expand the list.
		c.gen++
		c.loadingMore = false
	}
	c.limit = c.pageSize
	if len(c.records) > c.pageSize {
		c.records = c.records[:c.pageSize:c.pageSize]
		c.hasMore = true
	}
}

// issueLocked bumps the generation and snapshots the request parameters.
func (c *Controller) issueLocked() request {
	c.gen++
	return request{gen: c.gen, limit: c.limit, selection: c.selection}
}

func (c *Controller) fetch(ctx context.Context, req request, viewer *domain.Identity, token string) error {
	start := time.Now()
	page, err := c.source.FetchPage(ctx, token, req.selection.Tables(), req.limit)
	c.metrics.observeFetch(start, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if req.gen != c.gen {
		c.metrics.staleDiscarded()
		c.log.DebugContext(ctx, "discarding stale response", "generation", req.gen, "latest", c.gen)
		return nil
	}
	c.loading = false
	c.loadingMore = false

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		c.err = fetchFailed(err)
		c.log.ErrorContext(ctx, "fetch activity logs", "error", err,
			"limit", req.limit, "tables", len(req.selection.Tables()))
		return c.err
	}

	c.records = page.Records
	c.hasMore = page.HasMore
	c.viewer = viewer
	c.reportMalformed(ctx, page.Records)
	return nil
}

func (c *Controller) reportMalformed(ctx context.Context, records []domain.LogRecord) {
	for _, rec := range records {
		if err := describe.Validate(rec); err != nil {
			c.metrics.malformedRecord(rec.TableName)
			c.log.WarnContext(ctx, "malformed activity record", "error", err)
		}
	}
}

func fetchFailed(err error) error {
	if errors.Is(err, domain.ErrFetchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
}

func validateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return domain.NewValidationError("limit", "must be between 1 and "+strconv.Itoa(MaxLimit))
	}
	return nil
}
