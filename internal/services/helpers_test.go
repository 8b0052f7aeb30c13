package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/platform/retry"
	"github.com/trailaccess/trailguide/internal/repositories"
)

type repoError struct {
	notFound, conflict, unavailable, denied, invalid bool
}

func (e repoError) Error() string            { return "repository failure" }
func (e repoError) IsNotFound() bool         { return e.notFound }
func (e repoError) IsConflict() bool         { return e.conflict }
func (e repoError) IsUnavailable() bool      { return e.unavailable }
func (e repoError) IsPermissionDenied() bool { return e.denied }
func (e repoError) IsInvalid() bool          { return e.invalid }

var (
	errUnavailable = repoError{unavailable: true}
	errDenied      = repoError{denied: true}
)

type stubReader struct {
	calls atomic.Int32
	fn    func(ctx context.Context, query repositories.TrailQuery) ([]domain.TrailGuide, error)
}

func (s *stubReader) ListTrails(ctx context.Context, query repositories.TrailQuery) ([]domain.TrailGuide, error) {
	s.calls.Add(1)
	return s.fn(ctx, query)
}

func readerReturning(records []domain.TrailGuide, err error) *stubReader {
	return &stubReader{fn: func(context.Context, repositories.TrailQuery) ([]domain.TrailGuide, error) {
		return records, err
	}}
}

// stubFetcher counts fetches per query key. When gate is set each fetch blocks until a
// value is sent on it.
type stubFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	started chan struct{}
	gate    chan struct{}
	fn      func(call int, query repositories.TrailQuery) (FetchResult, error)
}

func newStubFetcher(fn func(call int, query repositories.TrailQuery) (FetchResult, error)) *stubFetcher {
	return &stubFetcher{calls: make(map[string]int), fn: fn}
}

func fetcherReturning(records []domain.TrailGuide) *stubFetcher {
	return newStubFetcher(func(int, repositories.TrailQuery) (FetchResult, error) {
		return FetchResult{Records: cloneAll(records), Source: domain.SourceFresh}, nil
	})
}

func (f *stubFetcher) Fetch(ctx context.Context, query repositories.TrailQuery, _ FetchPolicy) (FetchResult, error) {
	f.mu.Lock()
	f.calls[query.Key()]++
	call := f.calls[query.Key()]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
	return f.fn(call, query)
}

func (f *stubFetcher) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type stubMutator struct {
	mu      sync.Mutex
	likes   []likeCall
	likeFn  func(ctx context.Context, trailID string, delta int) error
	viewed  chan string
	viewErr error
}

type likeCall struct {
	trailID string
	userID  string
	delta   int
}

func (m *stubMutator) ApplyLike(ctx context.Context, trailID, userID string, delta int) error {
	m.mu.Lock()
	m.likes = append(m.likes, likeCall{trailID: trailID, userID: userID, delta: delta})
	fn := m.likeFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, trailID, delta)
	}
	return nil
}

func (m *stubMutator) IncrementViews(_ context.Context, trailID string) error {
	if m.viewed != nil {
		m.viewed <- trailID
	}
	return m.viewErr
}

func (m *stubMutator) likeCalls() []likeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]likeCall(nil), m.likes...)
}

type instantTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func (t *instantTimer) recorded() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

func instantScheduler(timer *instantTimer) *retry.Scheduler {
	return retry.New(retry.WithTimer(func() backoff.Timer { return timer }))
}

func meters(v float64) *float64 { return &v }

func cloneAll(records []domain.TrailGuide) []domain.TrailGuide {
	out := make([]domain.TrailGuide, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func ids(records []domain.TrailGuide) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sampleCatalog() []domain.TrailGuide {
	base := time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)
	return []domain.TrailGuide{
		{
			ID: "lake", RouteName: "Lakeside Loop", Description: "Flat loop around the lake",
			UserID: "u-1", UserEmail: "ana@example.com", GeneratedAt: base, IsPublic: true,
			Accessibility: domain.Accessibility{Location: "Lake Park", WheelchairAccess: "Fully accessible", TrailSurface: "Paved asphalt"},
			Metadata:      domain.RouteMetadata{TotalDistance: meters(1800), PhotoCount: 4},
			Community:     domain.Community{Likes: 3, Views: 10},
			HTMLContent:   `<h1>Lakeside</h1><script>alert(1)</script><p onclick="x()">Nice</p>`,
		},
		{
			ID: "ridge", RouteName: "ridge Walk", UserID: "u-2", UserEmail: "bo@example.com",
			GeneratedAt: base.Add(24 * time.Hour), IsPublic: true,
			Accessibility: domain.Accessibility{Location: "North Hills", WheelchairAccess: "Accessible with assistance", TrailSurface: "Packed gravel"},
			Metadata:      domain.RouteMetadata{TotalDistance: meters(5000)},
			Community:     domain.Community{Likes: 1, LikedBy: []string{"u-9"}},
		},
		{
			ID: "forest", RouteName: "Forest Path", UserID: "u-1", UserEmail: "ana@example.com",
			GeneratedAt: base.Add(48 * time.Hour), IsPublic: true,
			Accessibility: domain.Accessibility{Location: "Old Forest", WheelchairAccess: "Not accessible", TrailSurface: "Dirt and roots"},
			Metadata:      domain.RouteMetadata{TotalDistance: meters(12000), PhotoCount: 1},
		},
		{
			ID: "boardwalk", RouteName: "Marsh Boardwalk", UserID: "u-3", UserEmail: "cy@example.com",
			IsPublic:      true,
			Accessibility: domain.Accessibility{Location: "Wetlands", TrailSurface: "Wooden boardwalk"},
		},
	}
}
