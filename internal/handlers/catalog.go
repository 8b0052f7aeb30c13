package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/platform/httpx"
	"github.com/trailaccess/trailguide/internal/services"
)

// CatalogSession is the part of the client session the browse endpoints drive.
type CatalogSession interface {
	Stats(ctx context.Context) (domain.CatalogStats, error)
	Browse(ctx context.Context, filter domain.FilterSpec, sort domain.SortSpec) (services.BrowsePage, error)
	Next(ctx context.Context) (services.BrowsePage, error)
	Refresh(ctx context.Context) (services.BrowsePage, error)
	IsLiked(ctx context.Context, trailID string) bool
}

// CatalogHandlers exposes statistics and the incremental browse view.
type CatalogHandlers struct {
	session CatalogSession
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(session CatalogSession) *CatalogHandlers {
	return &CatalogHandlers{session: session}
}

// Routes registers the /catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.browse)
	r.Get("/stats", h.stats)
	r.Get("/next", h.next)
	r.Post("/refresh", h.refresh)
}

func (h *CatalogHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	stats, err := h.session.Stats(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCatalogStatsPayload(stats))
}

func (h *CatalogHandlers) browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	hasPhotos, err := parseBoolParam(query.Get("photos"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "photos must be a boolean", http.StatusBadRequest))
		return
	}
	filter, err := services.ParseFilter(services.FilterInput{
		Query:     query.Get("q"),
		Tier:      query.Get("tier"),
		Distance:  query.Get("distance"),
		Surface:   query.Get("surface"),
		HasPhotos: hasPhotos,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	sort, err := services.ParseSort(query.Get("sort"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	page, err := h.session.Browse(ctx, filter, sort)
	h.writePage(w, r, page, err)
}

func (h *CatalogHandlers) next(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	page, err := h.session.Next(ctx)
	h.writePage(w, r, page, err)
}

func (h *CatalogHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.session == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	page, err := h.session.Refresh(ctx)
	h.writePage(w, r, page, err)
}

func (h *CatalogHandlers) writePage(w http.ResponseWriter, r *http.Request, page services.BrowsePage, err error) {
	ctx := r.Context()
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	liked := func(id string) bool { return h.session.IsLiked(ctx, id) }
	httpx.WriteJSON(w, http.StatusOK, buildPagePayload(page, liked))
}

func parseBoolParam(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}
