package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailaccess/trailguide/internal/platform/httpx"
)

// AnnouncementSession tracks dismissed announcements.
type AnnouncementSession interface {
	ReadAnnouncements(ctx context.Context) ([]string, error)
	MarkAnnouncementRead(ctx context.Context, id string) error
}

// AnnouncementHandlers exposes the read-announcement set.
type AnnouncementHandlers struct {
	session AnnouncementSession
}

// NewAnnouncementHandlers constructs a new AnnouncementHandlers instance.
func NewAnnouncementHandlers(session AnnouncementSession) *AnnouncementHandlers {
	return &AnnouncementHandlers{session: session}
}

// Routes registers the /announcements endpoints.
func (h *AnnouncementHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/read", h.listRead)
	r.Put("/{announcementID}/read", h.markRead)
}

func (h *AnnouncementHandlers) listRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("announcements_unavailable", "announcement service unavailable", http.StatusServiceUnavailable))
		return
	}
	ids, err := h.session.ReadAnnouncements(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, announcementsResponse{Read: ids})
}

func (h *AnnouncementHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("announcements_unavailable", "announcement service unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.session.MarkAnnouncementRead(ctx, chi.URLParam(r, "announcementID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	ids, err := h.session.ReadAnnouncements(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, announcementsResponse{Read: ids})
}
