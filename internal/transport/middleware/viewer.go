package middleware

import (
	"context"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

type viewerHolderKey struct{}

type viewerHolder struct {
	id string
}

func withViewerHolder(ctx context.Context, h *viewerHolder) context.Context {
	return context.WithValue(ctx, viewerHolderKey{}, h)
}

// noteViewer records the authenticated viewer for the access log.
func noteViewer(ctx context.Context, id *domain.Identity) {
	h, ok := ctx.Value(viewerHolderKey{}).(*viewerHolder)
	if !ok || id == nil {
		return
	}
	h.id = id.ID
	if h.id == "" {
		h.id = id.Email
	}
}
