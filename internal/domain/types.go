package domain

import (
	"time"
)

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// SortField identifies the attribute used to order trail guides.
type SortField string

const (
	// SortByGeneratedAt orders by guide generation time.
	SortByGeneratedAt SortField = "generatedAt"
	// SortByDistance orders by total route distance.
	SortByDistance SortField = "totalDistance"
	// SortByName orders by route name.
	SortByName SortField = "name"
)

// AccessibilityTier is the coarse classification derived from free-text survey answers.
type AccessibilityTier string

const (
	TierFully   AccessibilityTier = "fully"
	TierPartial AccessibilityTier = "partial"
	TierNot     AccessibilityTier = "not"
)

// SurfaceType is the canonical bucket a free-text trail surface description maps to.
type SurfaceType string

const (
	SurfaceUnknown      SurfaceType = ""
	SurfacePaved        SurfaceType = "paved"
	SurfacePackedGravel SurfaceType = "packed_gravel"
	SurfaceDirt         SurfaceType = "dirt"
	SurfaceBoardwalk    SurfaceType = "boardwalk"
	SurfaceMixed        SurfaceType = "mixed"
)

// DistanceRangeID names a [Min, Max) bucket of route distances in meters.
type DistanceRangeID string

const (
	DistanceAny      DistanceRangeID = "any"
	DistanceShort    DistanceRangeID = "short"
	DistanceMedium   DistanceRangeID = "medium"
	DistanceLong     DistanceRangeID = "long"
	DistanceExtended DistanceRangeID = "extended"
)

// Source reports which read path satisfied a query.
type Source string

const (
	// SourceFresh indicates the remote document store answered.
	SourceFresh Source = "fresh"
	// SourceFallback indicates the locally cached snapshot answered.
	SourceFallback Source = "fallback"
)

// TrailGuide is a single catalog record describing one documented route.
type TrailGuide struct {
	ID            string
	RouteName     string
	Description   string
	UserID        string
	UserEmail     string
	GeneratedAt   time.Time
	IsPublic      bool
	Accessibility Accessibility
	Metadata      RouteMetadata
	Community     Community
	HTMLContent   string
}

// Accessibility holds the survey answers captured while documenting a route.
type Accessibility struct {
	Location         string
	WheelchairAccess string
	TrailSurface     string
	Difficulty       string
}

// RouteMetadata summarises the recorded route. TotalDistance is nil when the recording
// did not produce a distance.
type RouteMetadata struct {
	TotalDistance *float64
	PhotoCount    int
	NoteCount     int
	LocationCount int
}

// Community captures social counters owned by the remote store.
type Community struct {
	Views   int64
	Likes   int64
	LikedBy []string
}

// Distance returns the total distance in meters, treating a missing value as zero.
func (t TrailGuide) Distance() float64 {
	if t.Metadata.TotalDistance == nil {
		return 0
	}
	return *t.Metadata.TotalDistance
}

// Clone returns a copy that shares no mutable state with the receiver.
func (t TrailGuide) Clone() TrailGuide {
	out := t
	if t.Metadata.TotalDistance != nil {
		d := *t.Metadata.TotalDistance
		out.Metadata.TotalDistance = &d
	}
	if t.Community.LikedBy != nil {
		out.Community.LikedBy = append([]string(nil), t.Community.LikedBy...)
	}
	return out
}

// FilterSpec describes the active browse filters. The zero value matches every record.
type FilterSpec struct {
	Query             string
	AccessibilityTier AccessibilityTier
	DistanceRange     DistanceRangeID
	Surface           SurfaceType
	HasPhotos         bool
}

// SortSpec describes the active browse ordering.
type SortSpec struct {
	Field     SortField
	Direction SortOrder
}

// DefaultSort orders newest guides first.
var DefaultSort = SortSpec{Field: SortByGeneratedAt, Direction: SortDesc}

// CatalogStats aggregates the public catalog for the statistics view.
type CatalogStats struct {
	TotalTrails     int
	TotalDistance   float64
	TierCounts      map[AccessibilityTier]int
	Contributors    int
	TotalLikes      int64
	TotalViews      int64
	TotalPhotos     int
	Source          Source
	Warning         bool
	GeneratedAtLast time.Time
}

// UserStats summarises the trails documented by a single user.
type UserStats struct {
	UserID        string
	TrailCount    int
	PublicCount   int
	TotalDistance float64
	LikesReceived int64
	ViewsReceived int64
	LatestTrailAt time.Time
	Source        Source
	Warning       bool
}
