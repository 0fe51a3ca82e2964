// Package feed drives a paged, filterable activity feed for one viewer.
// It owns the record list, the current page limit and the table filter,
// and discards responses that arrive after a newer request was issued.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heartmarshall/activityfeed/internal/activity/describe"
	"github.com/heartmarshall/activityfeed/internal/activity/taxonomy"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/pkg/ctxutil"
)

const (
	DefaultPageSize = 20
	DefaultDebounce = 300 * time.Millisecond
	MaxLimit        = 500
)

type logSource interface {
	FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error)
}

type viewerSource interface {
	// Viewer returns the current identity and the token to forward to the
	// log source. A nil identity means nobody is signed in.
	Viewer(ctx context.Context) (*domain.Identity, string)
}

type describer interface {
	Describe(rec domain.LogRecord, viewer *domain.Identity) describe.Description
}

// CtxViewer reads the viewer and token placed on the context by the auth
// middleware.
type CtxViewer struct{}

func (CtxViewer) Viewer(ctx context.Context) (*domain.Identity, string) {
	id, ok := ctxutil.IdentityFromCtx(ctx)
	if !ok {
		return nil, ""
	}
	return id, ctxutil.AuthTokenFromCtx(ctx)
}

// StaticViewer always returns the same identity and token.
type StaticViewer struct {
	Identity *domain.Identity
	Token    string
}

func (v StaticViewer) Viewer(context.Context) (*domain.Identity, string) {
	return v.Identity, v.Token
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the initial limit and the LoadMore increment.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDebounce sets how long filter changes are coalesced before reloading.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithDescriber replaces the default describe.Engine.
func WithDescriber(d describer) Option {
	return func(c *Controller) {
		if d != nil {
			c.describer = d
		}
	}
}

// WithSelection sets the initial table filter.
func WithSelection(sel taxonomy.Selection) Option {
	return func(c *Controller) { c.selection = sel }
}

// Controller is the feed state machine for one viewer session. All methods
// are safe for concurrent use.
type Controller struct {
	source    logSource
	viewers   viewerSource
	describer describer
	metrics   *Metrics
	log       *slog.Logger

	pageSize int
	debounce time.Duration
	// mountCtx is used by debounced reloads, which have no caller context.
	mountCtx context.Context

	mu          sync.Mutex
	gen         uint64
	records     []domain.LogRecord
	viewer      *domain.Identity
	limit       int
	hasMore     bool
	selection   taxonomy.Selection
	loading     bool
	loadingMore bool
	err         error
	timer       *time.Timer
	closed      bool
}

// NewController creates a Controller mounted on ctx. Cancelling ctx aborts
// debounced reloads.
func NewController(
	ctx context.Context,
	log *slog.Logger,
	source logSource,
	viewers viewerSource,
	opts ...Option,
) *Controller {
	c := &Controller{
		source:    source,
		viewers:   viewers,
		describer: describe.NewEngine(),
		log:       log.With("service", "feed"),
		pageSize:  DefaultPageSize,
		debounce:  DefaultDebounce,
		mountCtx:  ctx,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limit = c.pageSize
	return c
}

// Close stops a pending debounced reload. Later filter changes no longer
// schedule reloads.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
