package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/repositories"
)

var errStaleGeneration = errors.New("catalog cache: fetch superseded by invalidation")

// CatalogFetcher answers trail queries; SourceFetcher is the production implementation.
type CatalogFetcher interface {
	Fetch(ctx context.Context, query repositories.TrailQuery, policy FetchPolicy) (FetchResult, error)
}

// CatalogEntry is one resolved load of the public catalog.
type CatalogEntry struct {
	Records    []domain.TrailGuide
	Source     domain.Source
	Warning    bool
	FetchedAt  time.Time
	Generation uint64
}

func (e *CatalogEntry) clone() CatalogEntry {
	out := *e
	out.Records = make([]domain.TrailGuide, len(e.Records))
	for i, record := range e.Records {
		out.Records[i] = record.Clone()
	}
	return out
}

// CatalogCacheDeps bundles collaborators required to construct a CatalogCache.
type CatalogCacheDeps struct {
	Fetcher CatalogFetcher
	Policy  FetchPolicy
	Clock   func() time.Time
	Logger  *zap.Logger
}

// CatalogCache holds the public catalog for the lifetime of a load cycle. Concurrent
// callers share one in-flight fetch per generation; Invalidate starts a new generation
// and results of fetches begun under an older one are discarded.
type CatalogCache struct {
	fetcher CatalogFetcher
	policy  FetchPolicy
	clock   func() time.Time
	logger  *zap.Logger

	group singleflight.Group

	mu         sync.Mutex
	generation uint64
	entry      *CatalogEntry
	index      map[string]int
}

// NewCatalogCache constructs an empty cache.
func NewCatalogCache(deps CatalogCacheDeps) (*CatalogCache, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("catalog cache: fetcher is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{
		fetcher: deps.Fetcher,
		policy:  deps.Policy,
		clock:   clock,
		logger:  logger.Named("catalog_cache"),
	}, nil
}

// GetCatalog returns the cached catalog, fetching it with the default policy on first use.
func (c *CatalogCache) GetCatalog(ctx context.Context) (CatalogEntry, error) {
	return c.Load(ctx, c.policy)
}

// Load is GetCatalog with an explicit policy for the fetch it may start. A caller joining
// a fetch already in flight inherits that fetch's policy.
func (c *CatalogCache) Load(ctx context.Context, policy FetchPolicy) (CatalogEntry, error) {
	for {
		c.mu.Lock()
		if c.entry != nil {
			entry := c.entry.clone()
			c.mu.Unlock()
			return entry, nil
		}
		generation := c.generation
		c.mu.Unlock()

		// The shared fetch must outlive the caller that happened to start it.
		detached := context.WithoutCancel(ctx)
		ch := c.group.DoChan(strconv.FormatUint(generation, 10), func() (any, error) {
			return c.fetch(detached, generation, policy)
		})

		select {
		case <-ctx.Done():
			return CatalogEntry{}, ctx.Err()
		case res := <-ch:
			if errors.Is(res.Err, errStaleGeneration) {
				continue
			}
			if res.Err != nil {
				return CatalogEntry{}, res.Err
			}
			// Every waiter receives the same value, so each takes its own copy.
			entry := res.Val.(CatalogEntry)
			return entry.clone(), nil
		}
	}
}

func (c *CatalogCache) fetch(ctx context.Context, generation uint64, policy FetchPolicy) (CatalogEntry, error) {
	result, err := c.fetcher.Fetch(ctx, repositories.PublicCatalogQuery(), policy)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		c.logger.Info("discarding stale catalog fetch",
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", c.generation),
		)
		return CatalogEntry{}, errStaleGeneration
	}
	if err != nil {
		return CatalogEntry{}, err
	}

	entry := &CatalogEntry{
		Records:    result.Records,
		Source:     result.Source,
		Warning:    result.Warning,
		FetchedAt:  c.clock().UTC(),
		Generation: generation,
	}
	c.entry = entry
	c.index = make(map[string]int, len(entry.Records))
	for i, record := range entry.Records {
		c.index[record.ID] = i
	}
	return entry.clone(), nil
}

// Invalidate drops the cached catalog and starts a new generation.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.entry = nil
	c.index = nil
	c.mu.Unlock()
}

// Generation returns the current cache generation.
func (c *CatalogCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Record returns a copy of the cached record with id.
func (c *CatalogCache) Record(id string) (domain.TrailGuide, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return domain.TrailGuide{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return domain.TrailGuide{}, false
	}
	return c.entry.Records[idx].Clone(), true
}

// UpdateRecord applies fn to the cached record with id and returns a copy of the result.
// It reports false when the catalog is not loaded or does not contain the record.
func (c *CatalogCache) UpdateRecord(id string, fn func(*domain.TrailGuide)) (domain.TrailGuide, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return domain.TrailGuide{}, false
	}
	idx, ok := c.index[id]
	if !ok {
		return domain.TrailGuide{}, false
	}
	fn(&c.entry.Records[idx])
	return c.entry.Records[idx].Clone(), true
}
