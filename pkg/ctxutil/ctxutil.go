package ctxutil

import (
	"context"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

type ctxKey string

const (
	identityKey  ctxKey = "identity"
	authTokenKey ctxKey = "auth_token"
	requestIDKey ctxKey = "request_id"
)

// WithIdentity stores the authenticated viewer in the context.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx extracts the viewer from the context.
// Returns nil and false if the value is missing, nil, or has no id and email.
func IdentityFromCtx(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	if !ok || id == nil || (id.ID == "" && id.Email == "") {
		return nil, false
	}
	return id, true
}

// WithAuthToken stores the caller's bearer token so it can be forwarded
// upstream.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authTokenKey, token)
}

// AuthTokenFromCtx extracts the bearer token. Returns an empty string if absent.
func AuthTokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(authTokenKey).(string)
	return token
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
