package firestore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/trailaccess/trailguide/internal/domain"
	pfirestore "github.com/trailaccess/trailguide/internal/platform/firestore"
	"github.com/trailaccess/trailguide/internal/repositories"
)

const (
	fieldIsPublic       = "isPublic"
	fieldUserID         = "userId"
	fieldGeneratedAt    = "generatedAt"
	fieldCommunityLikes = "community.likes"
	fieldCommunityLiked = "community.likedBy"
	fieldCommunityViews = "community.views"
)

// TrailGuideRepository reads and mutates trail guides in Firestore.
type TrailGuideRepository struct {
	base *pfirestore.BaseRepository[trailGuideDocument]
}

var _ repositories.TrailGuideRepository = (*TrailGuideRepository)(nil)

// NewTrailGuideRepository constructs a repository over the provider's configured collection.
func NewTrailGuideRepository(provider *pfirestore.Provider) (*TrailGuideRepository, error) {
	if provider == nil {
		return nil, errors.New("trail guide repository requires firestore provider")
	}
	return &TrailGuideRepository{
		base: pfirestore.NewBaseRepository[trailGuideDocument](provider, provider.Collection(), nil),
	}, nil
}

// ListTrails dispatches a query to ListPublic or ListByUser.
func (r *TrailGuideRepository) ListTrails(ctx context.Context, query repositories.TrailQuery) ([]domain.TrailGuide, error) {
	switch query.Kind {
	case repositories.QueryPublicCatalog:
		return r.ListPublic(ctx)
	case repositories.QueryUserTrails:
		return r.ListByUser(ctx, query.UserID)
	default:
		return nil, fmt.Errorf("trail guides: unsupported query kind %q", query.Kind)
	}
}

// ListPublic returns every public trail guide.
func (r *TrailGuideRepository) ListPublic(ctx context.Context) ([]domain.TrailGuide, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(fieldIsPublic, "==", true)
	})
	if err != nil {
		return nil, err
	}
	return toDomainList(docs), nil
}

// ListByUser returns the guides owned by userID, newest first.
func (r *TrailGuideRepository) ListByUser(ctx context.Context, userID string) ([]domain.TrailGuide, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("trail guides: user id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(fieldUserID, "==", userID).OrderBy(fieldGeneratedAt, firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainList(docs), nil
}

// ApplyLike issues a single write combining the likes increment with the likedBy set update.
func (r *TrailGuideRepository) ApplyLike(ctx context.Context, trailID, userID string, delta int) error {
	updates, err := likeUpdates(userID, delta)
	if err != nil {
		return err
	}
	_, err = r.base.Update(ctx, trailID, updates, firestore.Exists)
	return err
}

// IncrementViews bumps community.views by one.
func (r *TrailGuideRepository) IncrementViews(ctx context.Context, trailID string) error {
	_, err := r.base.Update(ctx, trailID, []firestore.Update{
		{Path: fieldCommunityViews, Value: firestore.Increment(1)},
	}, firestore.Exists)
	return err
}

func likeUpdates(userID string, delta int) ([]firestore.Update, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("trail guides: user id is required")
	}
	updates := []firestore.Update{{Path: fieldCommunityLikes, Value: firestore.Increment(delta)}}
	switch delta {
	case 1:
		updates = append(updates, firestore.Update{Path: fieldCommunityLiked, Value: firestore.ArrayUnion(userID)})
	case -1:
		updates = append(updates, firestore.Update{Path: fieldCommunityLiked, Value: firestore.ArrayRemove(userID)})
	default:
		return nil, repositories.ErrInvalidLikeDelta
	}
	return updates, nil
}

type trailGuideDocument struct {
	RouteName     string                `firestore:"routeName"`
	Description   string                `firestore:"description"`
	UserID        string                `firestore:"userId"`
	UserEmail     string                `firestore:"userEmail"`
	GeneratedAt   any                   `firestore:"generatedAt"`
	IsPublic      bool                  `firestore:"isPublic"`
	Accessibility accessibilityDocument `firestore:"accessibility"`
	Metadata      metadataDocument      `firestore:"metadata"`
	Community     communityDocument     `firestore:"community"`
	HTMLContent   string                `firestore:"htmlContent"`
}

type accessibilityDocument struct {
	Location         string `firestore:"location"`
	WheelchairAccess string `firestore:"wheelchairAccess"`
	TrailSurface     string `firestore:"trailSurface"`
	Difficulty       string `firestore:"difficulty"`
}

type metadataDocument struct {
	TotalDistance *float64 `firestore:"totalDistance"`
	PhotoCount    int      `firestore:"photoCount"`
	NoteCount     int      `firestore:"noteCount"`
	LocationCount int      `firestore:"locationCount"`
}

type communityDocument struct {
	Views   int64    `firestore:"views"`
	Likes   int64    `firestore:"likes"`
	LikedBy []string `firestore:"likedBy"`
}

func toDomainList(docs []pfirestore.Document[trailGuideDocument]) []domain.TrailGuide {
	out := make([]domain.TrailGuide, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDomain(doc.ID, doc.Data))
	}
	return out
}

func toDomain(id string, doc trailGuideDocument) domain.TrailGuide {
	return domain.TrailGuide{
		ID:          id,
		RouteName:   doc.RouteName,
		Description: doc.Description,
		UserID:      doc.UserID,
		UserEmail:   doc.UserEmail,
		GeneratedAt: parseGeneratedAt(doc.GeneratedAt),
		IsPublic:    doc.IsPublic,
		Accessibility: domain.Accessibility{
			Location:         doc.Accessibility.Location,
			WheelchairAccess: doc.Accessibility.WheelchairAccess,
			TrailSurface:     doc.Accessibility.TrailSurface,
			Difficulty:       doc.Accessibility.Difficulty,
		},
		Metadata: domain.RouteMetadata{
			TotalDistance: doc.Metadata.TotalDistance,
			PhotoCount:    doc.Metadata.PhotoCount,
			NoteCount:     doc.Metadata.NoteCount,
			LocationCount: doc.Metadata.LocationCount,
		},
		Community: domain.Community{
			Views:   doc.Community.Views,
			Likes:   doc.Community.Likes,
			LikedBy: append([]string(nil), doc.Community.LikedBy...),
		},
		HTMLContent: doc.HTMLContent,
	}
}

// parseGeneratedAt accepts Firestore timestamps, RFC3339 strings, epoch milliseconds and
// serialised {seconds, nanoseconds} maps. Anything else decodes as the zero time.
func parseGeneratedAt(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}
		}
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ts.UTC()
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}
		}
		return time.UnixMilli(int64(v)).UTC()
	case map[string]any:
		seconds, ok := numeric(v["seconds"])
		if !ok {
			return time.Time{}
		}
		nanos, _ := numeric(v["nanoseconds"])
		return time.Unix(seconds, nanos).UTC()
	}
	return time.Time{}
}

func numeric(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
