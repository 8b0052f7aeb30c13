package localstore

import (
	"context"
	"errors"
	"sort"
	"time"

	domain "github.com/trailaccess/trailguide/internal/domain"
	"github.com/trailaccess/trailguide/internal/repositories"
)

const snapshotKeyPrefix = "snapshot:"

type snapshot struct {
	SavedAt time.Time           `json:"savedAt"`
	Records []domain.TrailGuide `json:"records"`
}

// Snapshots is the "locally cached" read path: it answers trail queries from the last
// result each query returned from the remote store.
type Snapshots struct {
	store repositories.KeyValueStore
	now   func() time.Time
}

var _ repositories.SnapshotStore = (*Snapshots)(nil)

// NewSnapshots layers snapshot storage over a key/value store.
func NewSnapshots(store repositories.KeyValueStore) (*Snapshots, error) {
	if store == nil {
		return nil, errors.New("snapshots require a key/value store")
	}
	return &Snapshots{store: store, now: time.Now}, nil
}

// SaveTrails records the result of query.
func (s *Snapshots) SaveTrails(ctx context.Context, query repositories.TrailQuery, records []domain.TrailGuide) error {
	return s.store.Set(ctx, snapshotKeyPrefix+query.Key(), snapshot{
		SavedAt: s.now().UTC(),
		Records: records,
	})
}

// ListTrails returns the cached result of query. A query that was never saved yields an
// empty result, except that per-user queries are answered from the public snapshot when
// it holds records owned by that user.
func (s *Snapshots) ListTrails(ctx context.Context, query repositories.TrailQuery) ([]domain.TrailGuide, error) {
	records, found, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}
	if found || query.Kind != repositories.QueryUserTrails {
		return records, nil
	}

	public, _, err := s.load(ctx, repositories.PublicCatalogQuery())
	if err != nil {
		return nil, err
	}
	owned := make([]domain.TrailGuide, 0)
	for _, record := range public {
		if record.UserID == query.UserID {
			owned = append(owned, record)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].GeneratedAt.After(owned[j].GeneratedAt)
	})
	return owned, nil
}

func (s *Snapshots) load(ctx context.Context, query repositories.TrailQuery) ([]domain.TrailGuide, bool, error) {
	var snap snapshot
	found, err := s.store.Get(ctx, snapshotKeyPrefix+query.Key(), &snap)
	if err != nil {
		return nil, false, err
	}
	if !found || snap.Records == nil {
		return []domain.TrailGuide{}, found, nil
	}
	return snap.Records, true, nil
}
