package handlers

import (
	"time"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/services"
)

type trailPayload struct {
	ID            string   `json:"id"`
	RouteName     string   `json:"route_name"`
	Description   string   `json:"description,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
	UserEmail     string   `json:"user_email,omitempty"`
	GeneratedAt   string   `json:"generated_at,omitempty"`
	IsPublic      bool     `json:"is_public"`
	Location      string   `json:"location,omitempty"`
	Wheelchair    string   `json:"wheelchair_access,omitempty"`
	Surface       string   `json:"trail_surface,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Tier          string   `json:"accessibility_tier"`
	SurfaceType   string   `json:"surface_type,omitempty"`
	TotalDistance *float64 `json:"total_distance,omitempty"`
	PhotoCount    int      `json:"photo_count"`
	NoteCount     int      `json:"note_count"`
	Likes         int64    `json:"likes"`
	Views         int64    `json:"views"`
	Liked         bool     `json:"liked"`
}

type pagePayload struct {
	Trails    []trailPayload `json:"trails"`
	IsFirst   bool           `json:"is_first"`
	Displayed int            `json:"displayed"`
	Total     int            `json:"total"`
	HasMore   bool           `json:"has_more"`
	Filter    filterPayload  `json:"filter"`
	Sort      string         `json:"sort"`
	Source    string         `json:"source"`
	Warning   bool           `json:"warning"`
}

type filterPayload struct {
	Query     string `json:"q,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Distance  string `json:"distance,omitempty"`
	Surface   string `json:"surface,omitempty"`
	HasPhotos bool   `json:"photos,omitempty"`
}

type catalogStatsPayload struct {
	TotalTrails   int            `json:"total_trails"`
	TotalDistance float64        `json:"total_distance"`
	TierCounts    map[string]int `json:"tier_counts"`
	Contributors  int            `json:"contributors"`
	TotalLikes    int64          `json:"total_likes"`
	TotalViews    int64          `json:"total_views"`
	TotalPhotos   int            `json:"total_photos"`
	LatestTrailAt string         `json:"latest_trail_at,omitempty"`
	Source        string         `json:"source"`
	Warning       bool           `json:"warning"`
}

type userStatsPayload struct {
	TrailCount    int     `json:"trail_count"`
	PublicCount   int     `json:"public_count"`
	TotalDistance float64 `json:"total_distance"`
	LikesReceived int64   `json:"likes_received"`
	ViewsReceived int64   `json:"views_received"`
	LatestTrailAt string  `json:"latest_trail_at,omitempty"`
	Source        string  `json:"source"`
	Warning       bool    `json:"warning"`
}

type userTrailsResponse struct {
	UserID string           `json:"user_id"`
	Trails []trailPayload   `json:"trails"`
	Stats  userStatsPayload `json:"stats"`
}

type likeResponse struct {
	TrailID string `json:"trail_id"`
	State   string `json:"state"`
	Liked   bool   `json:"liked"`
	Likes   *int64 `json:"likes,omitempty"`
}

type guideResponse struct {
	TrailID   string `json:"trail_id"`
	RouteName string `json:"route_name"`
	HTML      string `json:"html"`
}

type announcementsResponse struct {
	Read []string `json:"read"`
}

// likedFunc reports whether the session user has liked a trail.
type likedFunc func(trailID string) bool

func buildTrailPayload(record domain.TrailGuide, liked likedFunc) trailPayload {
	payload := trailPayload{
		ID:            record.ID,
		RouteName:     record.RouteName,
		Description:   record.Description,
		UserID:        record.UserID,
		UserEmail:     record.UserEmail,
		GeneratedAt:   formatTime(record.GeneratedAt),
		IsPublic:      record.IsPublic,
		Location:      record.Accessibility.Location,
		Wheelchair:    record.Accessibility.WheelchairAccess,
		Surface:       record.Accessibility.TrailSurface,
		Difficulty:    record.Accessibility.Difficulty,
		Tier:          string(services.ClassifyTier(record.Accessibility.WheelchairAccess)),
		SurfaceType:   string(services.ClassifySurface(record.Accessibility.TrailSurface)),
		TotalDistance: record.Metadata.TotalDistance,
		PhotoCount:    record.Metadata.PhotoCount,
		NoteCount:     record.Metadata.NoteCount,
		Likes:         record.Community.Likes,
		Views:         record.Community.Views,
	}
	if liked != nil {
		payload.Liked = liked(record.ID)
	}
	return payload
}

func buildTrailPayloads(records []domain.TrailGuide, liked likedFunc) []trailPayload {
	out := make([]trailPayload, 0, len(records))
	for _, record := range records {
		out = append(out, buildTrailPayload(record, liked))
	}
	return out
}

func buildPagePayload(page services.BrowsePage, liked likedFunc) pagePayload {
	return pagePayload{
		Trails:    buildTrailPayloads(page.Items, liked),
		IsFirst:   page.IsFirst,
		Displayed: page.Displayed,
		Total:     page.Total,
		HasMore:   page.Displayed < page.Total,
		Filter: filterPayload{
			Query:     page.Filter.Query,
			Tier:      string(page.Filter.AccessibilityTier),
			Distance:  distanceParam(page.Filter.DistanceRange),
			Surface:   string(page.Filter.Surface),
			HasPhotos: page.Filter.HasPhotos,
		},
		Sort:    services.FormatSort(page.Sort),
		Source:  string(page.Source),
		Warning: page.Warning,
	}
}

func buildCatalogStatsPayload(stats domain.CatalogStats) catalogStatsPayload {
	tiers := make(map[string]int, len(stats.TierCounts))
	for tier, n := range stats.TierCounts {
		tiers[string(tier)] = n
	}
	return catalogStatsPayload{
		TotalTrails:   stats.TotalTrails,
		TotalDistance: stats.TotalDistance,
		TierCounts:    tiers,
		Contributors:  stats.Contributors,
		TotalLikes:    stats.TotalLikes,
		TotalViews:    stats.TotalViews,
		TotalPhotos:   stats.TotalPhotos,
		LatestTrailAt: formatTime(stats.GeneratedAtLast),
		Source:        string(stats.Source),
		Warning:       stats.Warning,
	}
}

func buildUserStatsPayload(stats domain.UserStats) userStatsPayload {
	return userStatsPayload{
		TrailCount:    stats.TrailCount,
		PublicCount:   stats.PublicCount,
		TotalDistance: stats.TotalDistance,
		LikesReceived: stats.LikesReceived,
		ViewsReceived: stats.ViewsReceived,
		LatestTrailAt: formatTime(stats.LatestTrailAt),
		Source:        string(stats.Source),
		Warning:       stats.Warning,
	}
}

func buildLikeResponse(outcome services.LikeOutcome) likeResponse {
	resp := likeResponse{
		TrailID: outcome.TrailID,
		State:   string(outcome.State),
		Liked:   outcome.Liked,
	}
	if outcome.Cached {
		likes := outcome.Likes
		resp.Likes = &likes
	}
	return resp
}

func distanceParam(id domain.DistanceRangeID) string {
	if id == domain.DistanceAny {
		return ""
	}
	return string(id)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
