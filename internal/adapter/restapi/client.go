// Package restapi reads activity log pages from the upstream REST API.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

const (
	logsPath = "activity-logs"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 16 << 20
	// maxErrorBody is how much of a failed response is kept for the log.
	maxErrorBody = 512
)

// Client fetches activity log pages over HTTP. It never retries: a failed
// fetch is terminal for the feed.
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("restapi: invalid base url %q", baseURL)
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger.With("adapter", "restapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchPage requests the newest limit records for tables. An empty tables
// slice asks for every table.
func (c *Client) FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(tables, limit), nil)
	if err != nil {
		return domain.LogPage{}, fmt.Errorf("%w: build request: %w", domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.LogPage{}, ctxErr
		}
		return domain.LogPage{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.LogPage{}, c.statusError(ctx, resp)
	}

	page, err := DecodePage(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.LogPage{}, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}

	c.log.DebugContext(ctx, "fetched activity logs",
		slog.Int("count", len(page.Records)),
		slog.Bool("has_more", page.HasMore),
		slog.Duration("duration", time.Since(start)),
	)
	return page, nil
}

func (c *Client) pageURL(tables []domain.EntityKind, limit int) string {
	u := c.base.JoinPath(logsPath)
	q := url.Values{}
	if len(tables) > 0 {
		names := make([]string, len(tables))
		for i, t := range tables {
			names[i] = string(t)
		}
		q.Set("tables", strings.Join(names, ","))
	}
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) statusError(ctx context.Context, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.log.WarnContext(ctx, "activity log request failed",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(snippet)),
	)

	statusErr := errors.New("upstream status " + strconv.Itoa(resp.StatusCode))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, statusErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrFetchFailed, statusErr)
}
