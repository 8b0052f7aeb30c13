package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/trailaccess/trailguide/internal/repositories"
)

const announcementsReadKey = "announcements_read"

// AnnouncementTracker remembers which announcements the user has dismissed.
type AnnouncementTracker struct {
	store repositories.KeyValueStore
	mu    sync.Mutex
}

// NewAnnouncementTracker constructs a tracker over store.
func NewAnnouncementTracker(store repositories.KeyValueStore) (*AnnouncementTracker, error) {
	if store == nil {
		return nil, errors.New("announcements: key/value store is required")
	}
	return &AnnouncementTracker{store: store}, nil
}

// ReadIDs returns the dismissed announcement ids in sorted order.
func (t *AnnouncementTracker) ReadIDs(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked(ctx)
}

// IsRead reports whether id has been dismissed.
func (t *AnnouncementTracker) IsRead(ctx context.Context, id string) (bool, error) {
	ids, err := t.ReadIDs(ctx)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ids, strings.TrimSpace(id))
	return found, nil
}

// MarkRead records id as dismissed. Marking an id twice is a no-op.
func (t *AnnouncementTracker) MarkRead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.Join(ErrInvalidInput, errors.New("announcement id is required"))
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ids, err := t.loadLocked(ctx)
	if err != nil {
		return err
	}
	pos, found := slices.BinarySearch(ids, id)
	if found {
		return nil
	}
	ids = slices.Insert(ids, pos, id)
	return t.store.Set(ctx, announcementsReadKey, ids)
}

func (t *AnnouncementTracker) loadLocked(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := t.store.Get(ctx, announcementsReadKey, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return strings.TrimSpace(id) == "" })
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
