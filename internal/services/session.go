package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/repositories"
)

// SessionConfig holds the per-session settings of the load sequence.
type SessionConfig struct {
	UserID        string
	UserEmail     string
	BatchSize     int
	StatsPolicy   FetchPolicy
	CatalogPolicy FetchPolicy
	UserPolicy    FetchPolicy
}

// SessionDeps bundles collaborators required to construct a Session.
type SessionDeps struct {
	Config  SessionConfig
	Fetcher CatalogFetcher
	Mutator TrailMutator
	Store   repositories.KeyValueStore
	Rating  RatingClassifier
	Logger  *zap.Logger
	Clock   func() time.Time
	NewID   func() string
}

// BrowsePage is the browse view after a filter change or a "show more" request.
type BrowsePage struct {
	Batch
	Filter  domain.FilterSpec
	Sort    domain.SortSpec
	Source  domain.Source
	Warning bool
}

// UserSummary is the signed-in user's own trail list and its statistics.
type UserSummary struct {
	Trails []domain.TrailGuide
	Stats  domain.UserStats
}

// GuideContent is the sanitised HTML body of one trail guide.
type GuideContent struct {
	TrailID   string
	RouteName string
	HTML      string
}

// LoadResult reports every phase of the initial load. A failed phase leaves its value
// empty and records the error; later phases still run.
type LoadResult struct {
	Stats      domain.CatalogStats
	StatsErr   error
	Page       BrowsePage
	CatalogErr error
	User       *UserSummary
	UserErr    error
}

// Session owns the state of one client session: the catalog cache, the browse window,
// the like coordinator and the announcement tracker. Init starts a session and Reset
// discards its catalog and browse state.
type Session struct {
	cfg       SessionConfig
	fetcher   CatalogFetcher
	mutator   TrailMutator
	store     repositories.KeyValueStore
	liked     *LikedSet
	rating    RatingClassifier
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() string
	sanitizer *bluemonday.Policy

	mu            sync.Mutex
	id            string
	cache         *CatalogCache
	likes         *LikeCoordinator
	announcements *AnnouncementTracker
	window        *PaginationWindow
	filter        domain.FilterSpec
	sort          domain.SortSpec
	browsed       bool
}

// NewSession validates deps and returns an initialised session.
func NewSession(deps SessionDeps) (*Session, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("session: fetcher is required")
	}
	if deps.Mutator == nil {
		return nil, errors.New("session: mutator is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session: key/value store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	rating := deps.Rating
	if rating == nil {
		rating = DefaultRating
	}

	cfg := deps.Config
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	cfg.UserEmail = strings.TrimSpace(cfg.UserEmail)

	// The liked set outlives Reset so a toggle still in flight settles against the
	// same membership and pending claims as the next session.
	liked, err := NewLikedSet(deps.Store, logger.Named("likes"))
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		mutator:   deps.Mutator,
		store:     deps.Store,
		liked:     liked,
		rating:    rating,
		logger:    logger,
		clock:     clock,
		newID:     newID,
		sanitizer: bluemonday.UGCPolicy(),
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init (re)builds the session-scoped collaborators under a fresh session id.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	logger := s.logger.With(zap.String("session_id", id))

	cache, err := NewCatalogCache(CatalogCacheDeps{
		Fetcher: s.fetcher,
		Policy:  s.cfg.CatalogPolicy,
		Clock:   s.clock,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	likes, err := NewLikeCoordinator(LikeCoordinatorDeps{
		Mutator: s.mutator,
		Cache:   cache,
		Liked:   s.liked,
		UserID:  s.cfg.UserID,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	announcements, err := NewAnnouncementTracker(s.store)
	if err != nil {
		return err
	}

	if s.likes != nil {
		s.likes.Wait()
	}
	s.id = id
	s.cache = cache
	s.likes = likes
	s.announcements = announcements
	s.window = NewPaginationWindow(s.cfg.BatchSize)
	s.filter = domain.FilterSpec{DistanceRange: domain.DistanceAny}
	s.sort = domain.DefaultSort
	s.browsed = false
	logger.Info("session initialised", zap.Bool("signed_in", s.cfg.UserID != ""))
	return nil
}

// Reset discards cached data and browse state by re-running Init. The persisted liked
// set and any like toggle still awaiting the remote store are carried over.
func (s *Session) Reset() error {
	return s.Init()
}

// Close waits for background work started by the session.
func (s *Session) Close() {
	s.mu.Lock()
	likes := s.likes
	s.mu.Unlock()
	if likes != nil {
		likes.Wait()
	}
}

// ID returns the current session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// UserID returns the signed-in user, or "" for anonymous sessions.
func (s *Session) UserID() string {
	return s.cfg.UserID
}

// Cache exposes the session's catalog cache.
func (s *Session) Cache() *CatalogCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// Likes exposes the session's like coordinator.
func (s *Session) Likes() *LikeCoordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes
}

// Announcements exposes the session's announcement tracker.
func (s *Session) Announcements() *AnnouncementTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.announcements
}

// ReadAnnouncements returns the dismissed announcement ids.
func (s *Session) ReadAnnouncements(ctx context.Context) ([]string, error) {
	return s.Announcements().ReadIDs(ctx)
}

// MarkAnnouncementRead dismisses announcement id.
func (s *Session) MarkAnnouncementRead(ctx context.Context, id string) error {
	return s.Announcements().MarkRead(ctx, id)
}

// Load runs the initial sequence: statistics, then the browse view, then the signed-in
// user's trails. The phases run one after another so they share the catalog round trip.
func (s *Session) Load(ctx context.Context) LoadResult {
	var result LoadResult
	result.Stats, result.StatsErr = s.Stats(ctx)
	result.Page, result.CatalogErr = s.Browse(ctx, s.currentFilter(), s.currentSort())
	if s.cfg.UserID != "" {
		summary, err := s.MyTrails(ctx)
		if err != nil {
			result.UserErr = err
		} else {
			result.User = &summary
		}
	}
	return result
}

// Stats returns the catalog statistics, fetching the catalog under the statistics policy
// when nothing is cached yet.
func (s *Session) Stats(ctx context.Context) (domain.CatalogStats, error) {
	entry, err := s.Cache().Load(ctx, s.cfg.StatsPolicy)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	return ComputeCatalogStats(entry, s.rating), nil
}

// Browse applies filter and sort to the cached catalog, rewinds the window and returns
// the first batch.
func (s *Session) Browse(ctx context.Context, filter domain.FilterSpec, sort domain.SortSpec) (BrowsePage, error) {
	cache := s.Cache()
	entry, err := cache.Load(ctx, s.cfg.CatalogPolicy)
	if err != nil {
		return BrowsePage{}, err
	}
	if sort.Field == "" {
		sort = domain.DefaultSort
	}
	view := FilterAndSort(entry.Records, filter, sort)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	s.sort = sort
	s.browsed = true
	s.window.Reset(view)
	return BrowsePage{
		Batch:   s.window.NextBatch(),
		Filter:  filter,
		Sort:    sort,
		Source:  entry.Source,
		Warning: entry.Warning,
	}, nil
}

// Next reveals the next batch of the current browse view. The view is built with the
// current filter when Browse has not run yet.
func (s *Session) Next(ctx context.Context) (BrowsePage, error) {
	s.mu.Lock()
	browsed := s.browsed
	s.mu.Unlock()
	if !browsed {
		return s.Browse(ctx, s.currentFilter(), s.currentSort())
	}

	entry, err := s.Cache().Load(ctx, s.cfg.CatalogPolicy)
	if err != nil {
		return BrowsePage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return BrowsePage{
		Batch:   s.window.NextBatch(),
		Filter:  s.filter,
		Sort:    s.sort,
		Source:  entry.Source,
		Warning: entry.Warning,
	}, nil
}

// Refresh invalidates the catalog and rebuilds the browse view with the current filter.
func (s *Session) Refresh(ctx context.Context) (BrowsePage, error) {
	s.Cache().Invalidate()
	return s.Browse(ctx, s.currentFilter(), s.currentSort())
}

// ToggleLike flips the user's like on trailID and mirrors the result into the browse view.
func (s *Session) ToggleLike(ctx context.Context, trailID string) (LikeOutcome, error) {
	outcome, err := s.Likes().ToggleLike(ctx, trailID)
	if outcome.Cached {
		s.syncWindow(outcome.TrailID)
	}
	return outcome, err
}

// IsLiked reports whether the signed-in user has liked trailID.
func (s *Session) IsLiked(ctx context.Context, trailID string) bool {
	if s.cfg.UserID == "" {
		return false
	}
	return s.Likes().IsLiked(ctx, trailID)
}

// RecordView counts a view of trailID.
func (s *Session) RecordView(ctx context.Context, trailID string) error {
	if err := s.Likes().RecordView(ctx, trailID); err != nil {
		return err
	}
	s.syncWindow(strings.TrimSpace(trailID))
	return nil
}

// syncWindow copies the cached community counters of trailID into the browse view.
func (s *Session) syncWindow(trailID string) {
	record, ok := s.Cache().Record(trailID)
	if !ok {
		return
	}
	s.mu.Lock()
	window := s.window
	s.mu.Unlock()
	window.UpdateItem(trailID, func(listed *domain.TrailGuide) {
		listed.Community = record.Community
	})
}

// Guide returns the sanitised HTML of a catalog record.
func (s *Session) Guide(ctx context.Context, trailID string) (GuideContent, error) {
	cache := s.Cache()
	if _, err := cache.Load(ctx, s.cfg.CatalogPolicy); err != nil {
		return GuideContent{}, err
	}
	record, ok := cache.Record(strings.TrimSpace(trailID))
	if !ok {
		return GuideContent{}, ErrTrailNotFound
	}
	return GuideContent{
		TrailID:   record.ID,
		RouteName: record.RouteName,
		HTML:      s.sanitizer.Sanitize(record.HTMLContent),
	}, nil
}

// MyTrails fetches the signed-in user's trails, newest first, with their statistics.
func (s *Session) MyTrails(ctx context.Context) (UserSummary, error) {
	if s.cfg.UserID == "" {
		return UserSummary{}, ErrUnauthenticated
	}
	result, err := s.fetcher.Fetch(ctx, repositories.UserTrailsQuery(s.cfg.UserID), s.cfg.UserPolicy)
	if err != nil {
		return UserSummary{}, err
	}
	return UserSummary{
		Trails: result.Records,
		Stats:  ComputeUserStats(s.cfg.UserID, result),
	}, nil
}

func (s *Session) currentFilter() domain.FilterSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) currentSort() domain.SortSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}
