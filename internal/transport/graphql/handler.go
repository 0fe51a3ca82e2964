// Package graphql serves the activity feed as a read-only GraphQL API next to
// the REST endpoints.
package graphql

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/heartmarshall/activityfeed/pkg/ctxutil"
)

const queryCacheSize = 100

// NewHandler serves r over GET and POST.
func NewHandler(r queryResolver, log *slog.Logger) http.Handler {
	log = log.With("component", "graphql")

	srv := handler.New(NewExecutableSchema(r))
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.SetQueryCache(lru.New[*ast.QueryDocument](queryCacheSize))

	srv.SetErrorPresenter(NewErrorPresenter(log))
	srv.SetRecoverFunc(func(ctx context.Context, err any) error {
		log.ErrorContext(ctx, "panic in GraphQL resolver",
			slog.Any("panic", err),
			slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
		)
		return fmt.Errorf("internal error")
	})
	return srv
}
