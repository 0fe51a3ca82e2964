package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/heartmarshall/activityfeed/pkg/ctxutil"
)

// RateLimit allows maxPerMinute requests per caller over a sliding window.
// Authenticated callers are keyed by viewer, anonymous ones by client IP, so
// it must run after Auth. maxPerMinute <= 0 disables limiting.
func RateLimit(maxPerMinute int) Middleware {
	if maxPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(maxPerMinute, time.Minute,
		httprate.WithKeyFuncs(callerKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

func callerKey(r *http.Request) (string, error) {
	if id, ok := ctxutil.IdentityFromCtx(r.Context()); ok {
		if id.ID != "" {
			return "user:" + id.ID, nil
		}
		return "email:" + id.Email, nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host, nil
}
