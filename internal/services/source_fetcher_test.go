package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/repositories"
	"github.com/trailaccess/trailguide/internal/repositories/localstore"
)

var testPolicy = FetchPolicy{MaxRetries: 3, BaseDelay: time.Second}

func newTestFetcher(t *testing.T, fresh, fallback *stubReader, snapshots repositories.SnapshotStore, timer *instantTimer) *SourceFetcher {
	t.Helper()
	fetcher, err := NewSourceFetcher(SourceFetcherDeps{
		Fresh:     fresh,
		Fallback:  fallback,
		Snapshots: snapshots,
		Scheduler: instantScheduler(timer),
	})
	require.NoError(t, err)
	return fetcher
}

func TestSourceFetcherFreshSuccessWritesSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshots, err := localstore.NewSnapshots(localstore.NewMemoryStore())
	require.NoError(t, err)

	fresh := readerReturning(sampleCatalog(), nil)
	fallback := readerReturning(nil, errors.New("unused"))
	fetcher := newTestFetcher(t, fresh, fallback, snapshots, newInstantTimer())

	result, err := fetcher.Fetch(ctx, repositories.PublicCatalogQuery(), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFresh, result.Source)
	assert.False(t, result.Warning)
	assert.Len(t, result.Records, 4)
	assert.EqualValues(t, 0, fallback.calls.Load())

	saved, err := snapshots.ListTrails(ctx, repositories.PublicCatalogQuery())
	require.NoError(t, err)
	assert.Equal(t, ids(result.Records), ids(saved))
}

func TestSourceFetcherFallsBackWithoutRetrying(t *testing.T) {
	timer := newInstantTimer()
	fresh := readerReturning(nil, errUnavailable)
	fallback := readerReturning(sampleCatalog()[:2], nil)
	fetcher := newTestFetcher(t, fresh, fallback, nil, timer)

	result, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.False(t, result.Warning)
	assert.Len(t, result.Records, 2)
	assert.EqualValues(t, 1, fresh.calls.Load())
	assert.EqualValues(t, 1, fallback.calls.Load())
	assert.Empty(t, timer.recorded())
}

func TestSourceFetcherEmptyFallbackIsDegradedSuccess(t *testing.T) {
	fresh := readerReturning(nil, errDenied)
	fallback := readerReturning(nil, nil)
	fetcher := newTestFetcher(t, fresh, fallback, nil, newInstantTimer())

	result, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), testPolicy)
	require.NoError(t, err)
	assert.True(t, result.Warning)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
}

func TestSourceFetcherRetriesWhenBothSourcesFail(t *testing.T) {
	timer := newInstantTimer()
	fresh := readerReturning(nil, errUnavailable)
	fallback := readerReturning(nil, errors.New("snapshot unreadable"))
	fetcher := newTestFetcher(t, fresh, fallback, nil, timer)

	_, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), testPolicy)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, errUnavailable)
	assert.EqualValues(t, 4, fresh.calls.Load())
	assert.EqualValues(t, 4, fallback.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, timer.recorded())
}

func TestSourceFetcherPermanentFailureIsNotRetried(t *testing.T) {
	timer := newInstantTimer()
	fresh := readerReturning(nil, errDenied)
	fallback := readerReturning(nil, errors.New("snapshot unreadable"))
	fetcher := newTestFetcher(t, fresh, fallback, nil, timer)

	_, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), testPolicy)
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
	assert.EqualValues(t, 1, fresh.calls.Load())
	assert.EqualValues(t, 1, fallback.calls.Load())
	assert.Empty(t, timer.recorded())
}

func TestSourceFetcherRecoversOnRetry(t *testing.T) {
	timer := newInstantTimer()
	fresh := &stubReader{}
	fresh.fn = func(context.Context, repositories.TrailQuery) ([]domain.TrailGuide, error) {
		if fresh.calls.Load() <= 2 {
			return nil, errUnavailable
		}
		return sampleCatalog(), nil
	}
	fallback := readerReturning(nil, errors.New("no snapshot"))
	fetcher := newTestFetcher(t, fresh, fallback, nil, timer)

	result, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFresh, result.Source)
	assert.EqualValues(t, 3, fresh.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.recorded())
}

func TestSourceFetcherFreshTimeoutUsesFallback(t *testing.T) {
	fresh := &stubReader{fn: func(ctx context.Context, _ repositories.TrailQuery) ([]domain.TrailGuide, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	fallback := readerReturning(sampleCatalog()[:1], nil)
	fetcher := newTestFetcher(t, fresh, fallback, nil, newInstantTimer())

	policy := testPolicy
	policy.Timeout = 10 * time.Millisecond
	result, err := fetcher.Fetch(context.Background(), repositories.PublicCatalogQuery(), policy)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.Len(t, result.Records, 1)
}

func TestNewSourceFetcherValidates(t *testing.T) {
	_, err := NewSourceFetcher(SourceFetcherDeps{Fallback: readerReturning(nil, nil)})
	assert.Error(t, err)
	_, err = NewSourceFetcher(SourceFetcherDeps{Fresh: readerReturning(nil, nil)})
	assert.Error(t, err)
}
