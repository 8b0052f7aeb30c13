package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailaccess/trailguide/internal/repositories/localstore"
)

func TestAnnouncementTrackerMarkRead(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	tracker, err := NewAnnouncementTracker(store)
	require.NoError(t, err)

	ids, err := tracker.ReadIDs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	require.NoError(t, tracker.MarkRead(ctx, "welcome"))
	require.NoError(t, tracker.MarkRead(ctx, " beta-maps "))
	require.NoError(t, tracker.MarkRead(ctx, "welcome"))

	ids, err = tracker.ReadIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta-maps", "welcome"}, ids)

	read, err := tracker.IsRead(ctx, "beta-maps")
	require.NoError(t, err)
	assert.True(t, read)
	read, err = tracker.IsRead(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, read)

	// A second tracker over the same store sees the persisted set.
	other, err := NewAnnouncementTracker(store)
	require.NoError(t, err)
	ids, err = other.ReadIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta-maps", "welcome"}, ids)
}

func TestAnnouncementTrackerNormalisesStoredSet(t *testing.T) {
	store := localstore.NewMemoryStore()
	store.SetRaw(announcementsReadKey, []byte(`["b","a","b",""]`))
	tracker, err := NewAnnouncementTracker(store)
	require.NoError(t, err)

	ids, err := tracker.ReadIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestAnnouncementTrackerValidation(t *testing.T) {
	_, err := NewAnnouncementTracker(nil)
	assert.Error(t, err)

	tracker, err := NewAnnouncementTracker(localstore.NewMemoryStore())
	require.NoError(t, err)
	assert.ErrorIs(t, tracker.MarkRead(context.Background(), "  "), ErrInvalidInput)
}

func TestAnnouncementTrackerCorruptSet(t *testing.T) {
	store := localstore.NewMemoryStore()
	store.SetRaw(announcementsReadKey, []byte("{"))
	tracker, err := NewAnnouncementTracker(store)
	require.NoError(t, err)

	_, err = tracker.ReadIDs(context.Background())
	assert.ErrorIs(t, err, localstore.ErrCorruptValue)
}
