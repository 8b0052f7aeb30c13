package firestore

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/trailaccess/trailguide/internal/repositories"
)

func TestLikeUpdates(t *testing.T) {
	tests := []struct {
		name  string
		delta int
		want  []firestore.Update
	}{
		{
			name:  "like",
			delta: 1,
			want: []firestore.Update{
				{Path: "community.likes", Value: firestore.Increment(1)},
				{Path: "community.likedBy", Value: firestore.ArrayUnion("u-1")},
			},
		},
		{
			name:  "unlike",
			delta: -1,
			want: []firestore.Update{
				{Path: "community.likes", Value: firestore.Increment(-1)},
				{Path: "community.likedBy", Value: firestore.ArrayRemove("u-1")},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := likeUpdates("u-1", tc.delta)
			if err != nil {
				t.Fatalf("likeUpdates: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected updates: %#v", got)
			}
		})
	}
}

func TestLikeUpdatesRejectsAbsoluteWrites(t *testing.T) {
	for _, delta := range []int{0, 2, -5} {
		if _, err := likeUpdates("u-1", delta); !errors.Is(err, repositories.ErrInvalidLikeDelta) {
			t.Fatalf("delta %d: expected ErrInvalidLikeDelta, got %v", delta, err)
		}
	}
	if _, err := likeUpdates("  ", 1); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestParseGeneratedAt(t *testing.T) {
	want := time.Date(2024, time.June, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  time.Time
	}{
		{name: "timestamp", value: want.In(time.FixedZone("JST", 9*3600)), want: want},
		{name: "rfc3339", value: "2024-06-02T15:04:05Z", want: want},
		{name: "epoch millis int", value: want.UnixMilli(), want: want},
		{name: "epoch millis float", value: float64(want.UnixMilli()), want: want},
		{name: "epoch millis string", value: "1717340645000", want: want},
		{name: "seconds map", value: map[string]any{"seconds": want.Unix(), "nanoseconds": int64(0)}, want: want},
		{name: "missing", value: nil, want: time.Time{}},
		{name: "garbage", value: "yesterday", want: time.Time{}},
		{name: "bool", value: true, want: time.Time{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseGeneratedAt(tc.value)
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestToDomainCopiesLikedBy(t *testing.T) {
	distance := 1234.5
	doc := trailGuideDocument{
		RouteName:   "River Loop",
		UserID:      "u-1",
		GeneratedAt: "2024-06-02T15:04:05Z",
		IsPublic:    true,
		Accessibility: accessibilityDocument{
			Location:         "Riverside Park",
			WheelchairAccess: "Fully accessible",
			TrailSurface:     "Paved asphalt",
		},
		Metadata:  metadataDocument{TotalDistance: &distance, PhotoCount: 3},
		Community: communityDocument{Likes: 2, LikedBy: []string{"a", "b"}},
	}

	got := toDomain("trail-1", doc)
	if got.ID != "trail-1" || got.RouteName != "River Loop" || !got.IsPublic {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if got.Distance() != distance {
		t.Fatalf("expected distance %v, got %v", distance, got.Distance())
	}
	if got.GeneratedAt.IsZero() {
		t.Fatal("expected generatedAt to be parsed")
	}
	doc.Community.LikedBy[0] = "mutated"
	if got.Community.LikedBy[0] != "a" {
		t.Fatal("expected likedBy to be copied")
	}
}
