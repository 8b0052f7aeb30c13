package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/trailaccess/trailguide/internal/repositories"
)

// LikedSet is the signed-in user's persisted set of liked trails plus the trails whose
// toggle is still awaiting the remote store. Every change is applied to the stored set
// as it reads at that moment, so coordinators sharing a LikedSet never overwrite each
// other's membership.
type LikedSet struct {
	store  repositories.KeyValueStore
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewLikedSet binds a liked set to the local key/value store.
func NewLikedSet(store repositories.KeyValueStore, logger *zap.Logger) (*LikedSet, error) {
	if store == nil {
		return nil, errors.New("liked set: key/value store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LikedSet{
		store:   store,
		logger:  logger,
		pending: make(map[string]struct{}),
	}, nil
}

// Contains reports whether trailID is in the stored set.
func (s *LikedSet) Contains(ctx context.Context, trailID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.readLocked(ctx)[trailID]
	return ok
}

// Pending reports whether a toggle for trailID is awaiting the remote store.
func (s *LikedSet) Pending(trailID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[trailID]
	return ok
}

// begin claims trailID for one toggle and reports whether it is currently liked.
func (s *LikedSet) begin(ctx context.Context, trailID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[trailID]; busy {
		return false, ErrLikePending
	}
	s.pending[trailID] = struct{}{}
	_, liked := s.readLocked(ctx)[trailID]
	return liked, nil
}

func (s *LikedSet) finish(trailID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, trailID)
}

// mark adds or removes trailID and leaves every other member untouched.
func (s *LikedSet) mark(ctx context.Context, trailID string, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.readLocked(ctx)
	if liked {
		set[trailID] = struct{}{}
	} else {
		delete(set, trailID)
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if err := s.store.Set(context.WithoutCancel(ctx), likedTrailsKey, ids); err != nil {
		s.logger.Warn("liked set not persisted", zap.Error(err))
	}
}

func (s *LikedSet) readLocked(ctx context.Context) map[string]struct{} {
	var ids []string
	if _, err := s.store.Get(context.WithoutCancel(ctx), likedTrailsKey, &ids); err != nil {
		// An unreadable set is treated as empty; the next write replaces it.
		s.logger.Warn("liked set unreadable", zap.Error(err))
		ids = nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
