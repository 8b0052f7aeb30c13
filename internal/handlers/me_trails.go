package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailaccess/trailguide/internal/platform/httpx"
	"github.com/trailaccess/trailguide/internal/services"
)

// UserSession is the part of the client session that serves the signed-in user.
type UserSession interface {
	UserID() string
	MyTrails(ctx context.Context) (services.UserSummary, error)
	IsLiked(ctx context.Context, trailID string) bool
}

// MeHandlers exposes the signed-in user's own trails.
type MeHandlers struct {
	session UserSession
}

// NewMeHandlers constructs a new MeHandlers instance.
func NewMeHandlers(session UserSession) *MeHandlers {
	return &MeHandlers{session: session}
}

// Routes registers the /me endpoints.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/trails", h.listTrails)
}

func (h *MeHandlers) listTrails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	summary, err := h.session.MyTrails(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	liked := func(id string) bool { return h.session.IsLiked(ctx, id) }
	httpx.WriteJSON(w, http.StatusOK, userTrailsResponse{
		UserID: h.session.UserID(),
		Trails: buildTrailPayloads(summary.Trails, liked),
		Stats:  buildUserStatsPayload(summary.Stats),
	})
}
