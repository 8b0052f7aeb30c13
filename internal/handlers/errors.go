package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/trailaccess/trailguide/internal/platform/httpx"
	"github.com/trailaccess/trailguide/internal/platform/observability"
	"github.com/trailaccess/trailguide/internal/services"
)

// writeServiceError maps service failures onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var likeErr *services.LikeError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in to use this feature", http.StatusUnauthorized))
	case errors.Is(err, services.ErrLikePending):
		httpx.WriteError(ctx, w, httpx.NewError("like_pending", "a like for this trail is already being saved", http.StatusConflict).AsRecoverable())
	case errors.As(err, &likeErr):
		httpx.WriteError(ctx, w, httpx.NewError("like_failed", "could not save your like, please try again", http.StatusBadGateway).
			AsRecoverable().
			WithDetails(map[string]any{"trail_id": likeErr.TrailID}))
	case errors.Is(err, services.ErrTrailNotFound), services.IsNotFound(err):
		httpx.WriteError(ctx, w, httpx.NewError("trail_not_found", "trail not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidInput), services.IsInvalid(err):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case services.IsPermissionDenied(err):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "access to trail data denied", http.StatusForbidden))
	case services.IsTransient(err):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "trail catalog temporarily unavailable", http.StatusServiceUnavailable).AsRecoverable())
	default:
		observability.FromContext(ctx).Error("request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}
