package repositories

import (
	"context"
	"errors"
	"strings"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

// ErrInvalidLikeDelta is returned when a like mutation is not a signed unit increment.
var ErrInvalidLikeDelta = errors.New("repositories: like delta must be +1 or -1")

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// PermissionError is implemented by errors that report a rejected caller.
type PermissionError interface {
	IsPermissionDenied() bool
}

// InvalidError is implemented by errors that report a malformed query or mutation.
type InvalidError interface {
	IsInvalid() bool
}

// QueryKind distinguishes the catalog reads issued by the session.
type QueryKind string

const (
	// QueryPublicCatalog selects every record with isPublic == true.
	QueryPublicCatalog QueryKind = "public"
	// QueryUserTrails selects every record owned by one user, newest first.
	QueryUserTrails QueryKind = "user"
)

// TrailQuery identifies a read that both the fresh and the fallback source can answer.
type TrailQuery struct {
	Kind   QueryKind
	UserID string
}

// PublicCatalogQuery returns the query backing the statistics and browse views.
func PublicCatalogQuery() TrailQuery {
	return TrailQuery{Kind: QueryPublicCatalog}
}

// UserTrailsQuery returns the query listing the trails documented by userID.
func UserTrailsQuery(userID string) TrailQuery {
	return TrailQuery{Kind: QueryUserTrails, UserID: strings.TrimSpace(userID)}
}

// Key returns a stable identifier for the query, used to address snapshots.
func (q TrailQuery) Key() string {
	if q.Kind == QueryUserTrails {
		return string(q.Kind) + ":" + q.UserID
	}
	return string(q.Kind)
}

// TrailGuideReader answers trail queries.
type TrailGuideReader interface {
	ListTrails(ctx context.Context, query TrailQuery) ([]domain.TrailGuide, error)
}

// TrailGuideRepository is the remote document store of trail guides.
type TrailGuideRepository interface {
	TrailGuideReader
	ListPublic(ctx context.Context) ([]domain.TrailGuide, error)
	ListByUser(ctx context.Context, userID string) ([]domain.TrailGuide, error)
	// ApplyLike atomically increments community.likes by delta and adds or removes
	// userID from community.likedBy in the same write.
	ApplyLike(ctx context.Context, trailID, userID string, delta int) error
	IncrementViews(ctx context.Context, trailID string) error
}

// SnapshotStore keeps the last good result of each query for the fallback read path.
type SnapshotStore interface {
	TrailGuideReader
	SaveTrails(ctx context.Context, query TrailQuery, records []domain.TrailGuide) error
}

// KeyValueStore persists small JSON blobs keyed by name.
type KeyValueStore interface {
	// Get decodes the value stored under key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Ping(ctx context.Context) error
	Close() error
}

// HealthRepository reports the status of the session's dependencies.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
