package middleware

import (
	"slices"
	"strings"

	"github.com/go-chi/cors"

	"github.com/heartmarshall/activityfeed/internal/config"
)

// CORS returns middleware that lets a browser feed client on another origin
// call the API. Preflight requests are answered by the middleware itself.
// Credentials are never allowed together with a wildcard origin. An empty
// origin list disables CORS and CORS returns nil.
func CORS(cfg config.CORSConfig) Middleware {
	origins := splitList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return nil
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   splitList(cfg.AllowedMethods),
		AllowedHeaders:   splitList(cfg.AllowedHeaders),
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials && !slices.Contains(origins, "*"),
		MaxAge:           cfg.MaxAge,
	})
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
