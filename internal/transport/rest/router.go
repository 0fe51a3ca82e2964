package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/activityfeed/internal/config"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/internal/transport/middleware"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Feed      *FeedHandler
	Health    *HealthHandler
	Validator tokenValidator
	// RateLimit is requests per minute per caller; 0 disables it.
	RateLimit int
	CORS      config.CORSConfig
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// GraphQL is mounted on /api/v1/activity/graphql when set.
	GraphQL http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/v1/activity", func(r chi.Router) {
		r.Use(middleware.Auth(d.Validator))
		r.Use(middleware.RateLimit(d.RateLimit))
		r.Get("/", d.Feed.List)
		r.Get("/groups", d.Feed.Groups)
		if d.GraphQL != nil {
			r.Method(http.MethodGet, "/graphql", d.GraphQL)
			r.Method(http.MethodPost, "/graphql", d.GraphQL)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORS),
	)(r)
}
