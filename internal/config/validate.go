package config

import (
	"fmt"
	"net/url"
	"strings"
)

// maxPageSize mirrors the feed controller's hard limit.
const maxPageSize = 500

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Source.validate(c.Database); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if c.Feed.PageSize < 1 || c.Feed.PageSize > maxPageSize {
		return fmt.Errorf("feed.page_size must be between 1 and %d (got %d)", maxPageSize, c.Feed.PageSize)
	}
	if c.Feed.Debounce < 0 {
		return fmt.Errorf("feed.debounce must be >= 0 (got %v)", c.Feed.Debounce)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	return nil
}

func (s SourceConfig) validate(db DatabaseConfig) error {
	switch s.Kind {
	case SourcePostgres:
		if db.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s source", SourcePostgres)
		}
	case SourceHTTP:
		u, err := url.Parse(s.BaseURL)
		if err != nil || s.BaseURL == "" {
			return fmt.Errorf("base_url is required for the %s source", SourceHTTP)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url must be an http(s) URL (got %q)", s.BaseURL)
		}
	default:
		return fmt.Errorf("kind must be %s or %s (got %q)", SourcePostgres, SourceHTTP, s.Kind)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", s.Timeout)
	}
	return nil
}
