package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/platform/observability"
	"github.com/trailaccess/trailguide/internal/platform/retry"
	"github.com/trailaccess/trailguide/internal/repositories"
)

// FetchPolicy bounds one load phase: the fresh read times out after Timeout and the
// whole fresh/fallback pass is retried up to MaxRetries times.
type FetchPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

// FetchResult is a successfully answered query.
type FetchResult struct {
	Records []domain.TrailGuide
	Source  domain.Source
	// Warning marks a degraded success: the fresh read failed and the fallback had no records.
	Warning bool
}

// SourceFetcherDeps bundles collaborators required to construct a SourceFetcher.
type SourceFetcherDeps struct {
	Fresh     repositories.TrailGuideReader
	Fallback  repositories.TrailGuideReader
	Snapshots repositories.SnapshotStore
	Scheduler *retry.Scheduler
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Meter     metric.Meter
}

// SourceFetcher reads a query from the fresh source, falling back to the locally cached
// source when the fresh read fails.
type SourceFetcher struct {
	fresh     repositories.TrailGuideReader
	fallback  repositories.TrailGuideReader
	snapshots repositories.SnapshotStore
	scheduler *retry.Scheduler
	logger    *zap.Logger
	tracer    trace.Tracer
	fetches   metric.Int64Counter
}

// NewSourceFetcher validates deps and constructs a fetcher.
func NewSourceFetcher(deps SourceFetcherDeps) (*SourceFetcher, error) {
	if deps.Fresh == nil {
		return nil, errors.New("source fetcher: fresh source is required")
	}
	if deps.Fallback == nil {
		return nil, errors.New("source fetcher: fallback source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = retry.New(retry.WithLogger(logger))
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.Tracer()
	}
	meter := deps.Meter
	if meter == nil {
		meter = observability.Meter()
	}
	fetches, err := meter.Int64Counter("trailguide.fetch.results",
		metric.WithDescription("Trail queries answered, by source"),
	)
	if err != nil {
		return nil, err
	}

	return &SourceFetcher{
		fresh:     deps.Fresh,
		fallback:  deps.Fallback,
		snapshots: deps.Snapshots,
		scheduler: scheduler,
		logger:    logger.Named("source_fetcher"),
		tracer:    tracer,
		fetches:   fetches,
	}, nil
}

// Fetch answers query. Transient failures of the fresh source are retried per policy when
// the fallback also fails; a permanent fresh failure is returned after the single fallback
// attempt.
func (f *SourceFetcher) Fetch(ctx context.Context, query repositories.TrailQuery, policy FetchPolicy) (FetchResult, error) {
	ctx, span := f.tracer.Start(ctx, "SourceFetcher.Fetch", trace.WithAttributes(
		attribute.String("trailguide.query", query.Key()),
	))
	defer span.End()

	result, err := retry.Do(ctx, f.scheduler, retry.Policy{
		MaxRetries:  policy.MaxRetries,
		BaseDelay:   policy.BaseDelay,
		IsTransient: IsTransient,
	}, func(ctx context.Context) (FetchResult, error) {
		return f.attempt(ctx, query, policy.Timeout)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		f.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "none")))
		return FetchResult{}, err
	}

	span.SetAttributes(
		attribute.String("trailguide.source", string(result.Source)),
		attribute.Int("trailguide.records", len(result.Records)),
		attribute.Bool("trailguide.warning", result.Warning),
	)
	f.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(result.Source))))
	return result, nil
}

func (f *SourceFetcher) attempt(ctx context.Context, query repositories.TrailQuery, timeout time.Duration) (FetchResult, error) {
	records, freshErr := retry.Race(ctx, timeout, func(ctx context.Context) ([]domain.TrailGuide, error) {
		return f.fresh.ListTrails(ctx, query)
	})
	if freshErr == nil {
		f.writeThrough(ctx, query, records)
		return FetchResult{Records: nonNil(records), Source: domain.SourceFresh}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return FetchResult{}, ctxErr
	}

	f.logger.Warn("fresh read failed, trying fallback",
		zap.String("query", query.Key()),
		zap.Stringer("kind", Classify(freshErr)),
		zap.Error(freshErr),
	)
	cached, fallbackErr := f.fallback.ListTrails(ctx, query)
	if fallbackErr != nil {
		return FetchResult{}, &FetchError{Query: query, Fresh: freshErr, Fallback: fallbackErr}
	}
	return FetchResult{
		Records: nonNil(cached),
		Source:  domain.SourceFallback,
		Warning: len(cached) == 0,
	}, nil
}

func (f *SourceFetcher) writeThrough(ctx context.Context, query repositories.TrailQuery, records []domain.TrailGuide) {
	if f.snapshots == nil {
		return
	}
	if err := f.snapshots.SaveTrails(ctx, query, records); err != nil {
		f.logger.Warn("snapshot write failed", zap.String("query", query.Key()), zap.Error(err))
	}
}

func nonNil(records []domain.TrailGuide) []domain.TrailGuide {
	if records == nil {
		return []domain.TrailGuide{}
	}
	return records
}
