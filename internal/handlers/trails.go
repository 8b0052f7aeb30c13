package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trailaccess/trailguide/internal/platform/httpx"
	"github.com/trailaccess/trailguide/internal/services"
)

// TrailSession is the part of the client session the per-trail endpoints drive.
type TrailSession interface {
	ToggleLike(ctx context.Context, trailID string) (services.LikeOutcome, error)
	RecordView(ctx context.Context, trailID string) error
	Guide(ctx context.Context, trailID string) (services.GuideContent, error)
}

// TrailHandlers exposes like toggles, view counting and guide content.
type TrailHandlers struct {
	session TrailSession
}

// NewTrailHandlers constructs a new TrailHandlers instance.
func NewTrailHandlers(session TrailSession) *TrailHandlers {
	return &TrailHandlers{session: session}
}

// Routes registers the /trails endpoints.
func (h *TrailHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{trailID}/like", h.toggleLike)
	r.Post("/{trailID}/view", h.recordView)
	r.Get("/{trailID}/guide", h.guide)
}

func (h *TrailHandlers) toggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trailID, ok := h.trailID(w, r)
	if !ok {
		return
	}
	outcome, err := h.session.ToggleLike(ctx, trailID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildLikeResponse(outcome))
}

func (h *TrailHandlers) recordView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trailID, ok := h.trailID(w, r)
	if !ok {
		return
	}
	if err := h.session.RecordView(ctx, trailID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *TrailHandlers) guide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trailID, ok := h.trailID(w, r)
	if !ok {
		return
	}
	content, err := h.session.Guide(ctx, trailID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, guideResponse{
		TrailID:   content.TrailID,
		RouteName: content.RouteName,
		HTML:      content.HTML,
	})
}

func (h *TrailHandlers) trailID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	trailID := strings.TrimSpace(chi.URLParam(r, "trailID"))
	if trailID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "trail id is required", http.StatusBadRequest))
		return "", false
	}
	return trailID, true
}
