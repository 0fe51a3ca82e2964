package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/activityfeed/internal/adapter/postgres"
	"github.com/heartmarshall/activityfeed/internal/adapter/postgres/activitylog"
	"github.com/heartmarshall/activityfeed/internal/adapter/restapi"
	"github.com/heartmarshall/activityfeed/internal/config"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

// LogSource reads pages of activity log records.
type LogSource interface {
	FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error)
}

// Source is the configured log source and the resources behind it.
type Source struct {
	Kind string
	Logs LogSource
	// Pool is set only for the postgres source.
	Pool *pgxpool.Pool
}

// OpenSource connects the log source selected by cfg.Source.Kind.
func OpenSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Source, error) {
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres source: %w", err)
		}
		return &Source{Kind: cfg.Source.Kind, Logs: activitylog.New(pool), Pool: pool}, nil

	case config.SourceHTTP:
		client, err := restapi.New(cfg.Source.BaseURL, cfg.Source.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("open http source: %w", err)
		}
		return &Source{Kind: cfg.Source.Kind, Logs: client}, nil
	}
	return nil, fmt.Errorf("unknown log source %q", cfg.Source.Kind)
}

// Close releases the database pool, if any.
func (s *Source) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}
