package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/platform/observability"
	"github.com/trailaccess/trailguide/internal/repositories"
)

const (
	likedTrailsKey     = "liked_trails"
	defaultViewTimeout = 10 * time.Second
)

// TrailMutator issues the atomic social updates on the remote store.
type TrailMutator interface {
	ApplyLike(ctx context.Context, trailID, userID string, delta int) error
	IncrementViews(ctx context.Context, trailID string) error
}

// LikeState is the terminal state of a toggle.
type LikeState string

const (
	LikeCommitted  LikeState = "committed"
	LikeRolledBack LikeState = "rolled_back"
)

// LikeOutcome reports the local state after a toggle settles.
type LikeOutcome struct {
	TrailID string
	State   LikeState
	Liked   bool
	Likes   int64
	// Cached is false when the trail was not part of the loaded catalog, in which case
	// Likes is not known locally.
	Cached bool
}

// LikeCoordinatorDeps bundles collaborators required to construct a LikeCoordinator.
// Liked is shared across coordinators of one user; when nil a set over Store is built.
type LikeCoordinatorDeps struct {
	Mutator     TrailMutator
	Cache       *CatalogCache
	Store       repositories.KeyValueStore
	Liked       *LikedSet
	UserID      string
	Logger      *zap.Logger
	ViewTimeout time.Duration
}

// LikeCoordinator applies like toggles optimistically to the cached catalog and the
// persisted liked set, then confirms them with one atomic remote update. A failed
// remote update restores the pre-toggle state.
type LikeCoordinator struct {
	mutator     TrailMutator
	cache       *CatalogCache
	liked       *LikedSet
	userID      string
	logger      *zap.Logger
	viewTimeout time.Duration

	views sync.WaitGroup
}

// NewLikeCoordinator validates deps and constructs a coordinator.
func NewLikeCoordinator(deps LikeCoordinatorDeps) (*LikeCoordinator, error) {
	if deps.Mutator == nil {
		return nil, errors.New("like coordinator: mutator is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("like coordinator: catalog cache is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("likes")
	liked := deps.Liked
	if liked == nil {
		if deps.Store == nil {
			return nil, errors.New("like coordinator: key/value store is required")
		}
		var err error
		if liked, err = NewLikedSet(deps.Store, logger); err != nil {
			return nil, err
		}
	}
	viewTimeout := deps.ViewTimeout
	if viewTimeout <= 0 {
		viewTimeout = defaultViewTimeout
	}
	return &LikeCoordinator{
		mutator:     deps.Mutator,
		cache:       deps.Cache,
		liked:       liked,
		userID:      strings.TrimSpace(deps.UserID),
		logger:      logger,
		viewTimeout: viewTimeout,
	}, nil
}

// ToggleLike flips the signed-in user's like on trailID.
func (c *LikeCoordinator) ToggleLike(ctx context.Context, trailID string) (LikeOutcome, error) {
	if c.userID == "" {
		return LikeOutcome{}, ErrUnauthenticated
	}
	trailID = strings.TrimSpace(trailID)
	if trailID == "" {
		return LikeOutcome{}, errors.Join(ErrInvalidInput, errors.New("trail id is required"))
	}

	wasLiked, err := c.liked.begin(ctx, trailID)
	if err != nil {
		return LikeOutcome{}, err
	}
	defer c.liked.finish(trailID)

	delta := 1
	if wasLiked {
		delta = -1
	}
	generation := c.cache.Generation()
	c.apply(ctx, trailID, delta, true)

	remoteErr := c.mutator.ApplyLike(ctx, trailID, c.userID, delta)

	state := LikeCommitted
	if remoteErr != nil {
		state = LikeRolledBack
		// A catalog reloaded mid-flight never saw the optimistic delta.
		c.apply(ctx, trailID, -delta, c.cache.Generation() == generation)
		c.logger.Warn("like rolled back",
			zap.String("trail_id", observability.SanitizeTrailID(trailID)),
			zap.Int("delta", delta),
			zap.Error(remoteErr),
		)
	}

	outcome := LikeOutcome{TrailID: trailID, State: state}
	outcome.Liked = c.liked.Contains(ctx, trailID)
	if record, ok := c.cache.Record(trailID); ok {
		outcome.Cached = true
		outcome.Likes = record.Community.Likes
	}
	if remoteErr != nil {
		return outcome, &LikeError{TrailID: trailID, Delta: delta, Err: remoteErr}
	}
	return outcome, nil
}

// apply moves the persisted membership, and optionally the cached record, by delta.
func (c *LikeCoordinator) apply(ctx context.Context, trailID string, delta int, touchCache bool) {
	if touchCache {
		c.cache.UpdateRecord(trailID, func(record *domain.TrailGuide) {
			ApplyLikeDelta(record, c.userID, delta)
		})
	}
	c.liked.mark(ctx, trailID, delta > 0)
}

// ApplyLikeDelta moves record's like counter by delta and adds or removes userID from
// its likedBy set.
func ApplyLikeDelta(record *domain.TrailGuide, userID string, delta int) {
	record.Community.Likes += int64(delta)
	if delta > 0 {
		if !slices.Contains(record.Community.LikedBy, userID) {
			record.Community.LikedBy = append(record.Community.LikedBy, userID)
		}
		return
	}
	record.Community.LikedBy = slices.DeleteFunc(record.Community.LikedBy, func(id string) bool { return id == userID })
}

// IsLiked reports whether the signed-in user has liked trailID.
func (c *LikeCoordinator) IsLiked(ctx context.Context, trailID string) bool {
	return c.liked.Contains(ctx, trailID)
}

// Pending reports whether a toggle for trailID is awaiting the remote store.
func (c *LikeCoordinator) Pending(trailID string) bool {
	return c.liked.Pending(trailID)
}

// RecordView bumps the cached view counter and sends the remote increment in the
// background. Remote failures are logged and never rolled back.
func (c *LikeCoordinator) RecordView(ctx context.Context, trailID string) error {
	trailID = strings.TrimSpace(trailID)
	if trailID == "" {
		return errors.Join(ErrInvalidInput, errors.New("trail id is required"))
	}
	c.cache.UpdateRecord(trailID, func(record *domain.TrailGuide) {
		record.Community.Views++
	})

	c.views.Add(1)
	go func() {
		defer c.views.Done()
		viewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.viewTimeout)
		defer cancel()
		if err := c.mutator.IncrementViews(viewCtx, trailID); err != nil {
			c.logger.Warn("view increment failed", zap.String("trail_id", observability.SanitizeTrailID(trailID)), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until background view increments have finished.
func (c *LikeCoordinator) Wait() {
	c.views.Wait()
}
