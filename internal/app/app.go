package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/activityfeed/internal/auth"
	"github.com/heartmarshall/activityfeed/internal/config"
	"github.com/heartmarshall/activityfeed/internal/service/feed"
	"github.com/heartmarshall/activityfeed/internal/transport/graphql"
	"github.com/heartmarshall/activityfeed/internal/transport/graphql/resolver"
	"github.com/heartmarshall/activityfeed/internal/transport/rest"
)

// Run is the server entry point. It loads configuration, opens the log
// source, and serves HTTP until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("source", cfg.Source.Kind),
	)

	src, err := OpenSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := NewHandler(cfg, src, reg, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(handler, "activityfeed"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return serve(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}

// NewHandler wires handlers, middleware and metrics for src. reg may be nil,
// which disables /metrics and the feed collectors.
func NewHandler(
	cfg *config.Config,
	src *Source,
	reg *prometheus.Registry,
	logger *slog.Logger,
) http.Handler {
	opts := []feed.Option{feed.WithDebounce(cfg.Feed.Debounce)}
	var metricsHandler http.Handler
	if reg != nil {
		opts = append(opts, feed.WithMetrics(feed.NewMetrics(reg)))
		if cfg.Server.MetricsEnabled {
			metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		}
	}

	health := rest.NewHealthHandler(nil, src.Kind, BuildVersion())
	if src.Pool != nil {
		health = rest.NewHealthHandler(src.Pool, src.Kind, BuildVersion())
	}

	return rest.NewRouter(rest.RouterDeps{
		Feed:      rest.NewFeedHandler(src.Logs, cfg.Feed.PageSize, logger, opts...),
		Health:    health,
		Validator: auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL),
		RateLimit: cfg.Server.RateLimitPerMinute,
		CORS:      cfg.CORS,
		Metrics:   metricsHandler,
		GraphQL:   graphql.NewHandler(resolver.NewResolver(logger, src.Logs, cfg.Feed.PageSize, opts...), logger),
		Logger:    logger,
	})
}

// serve runs srv until ctx is done or the listener fails.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
