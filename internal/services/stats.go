package services

import (
	domain "github.com/trailaccess/trailguide/internal/domain"
)

// ComputeCatalogStats aggregates the public catalog. rate classifies each record into a
// tier; nil uses DefaultRating.
func ComputeCatalogStats(entry CatalogEntry, rate RatingClassifier) domain.CatalogStats {
	if rate == nil {
		rate = DefaultRating
	}
	stats := domain.CatalogStats{
		TotalTrails: len(entry.Records),
		TierCounts: map[domain.AccessibilityTier]int{
			domain.TierFully:   0,
			domain.TierPartial: 0,
			domain.TierNot:     0,
		},
		Source:  entry.Source,
		Warning: entry.Warning,
	}

	contributors := make(map[string]struct{})
	for _, record := range entry.Records {
		stats.TotalDistance += record.Distance()
		stats.TierCounts[rate(record)]++
		stats.TotalLikes += record.Community.Likes
		stats.TotalViews += record.Community.Views
		stats.TotalPhotos += record.Metadata.PhotoCount
		if record.UserID != "" {
			contributors[record.UserID] = struct{}{}
		}
		if record.GeneratedAt.After(stats.GeneratedAtLast) {
			stats.GeneratedAtLast = record.GeneratedAt
		}
	}
	stats.Contributors = len(contributors)
	return stats
}

// ComputeUserStats summarises the trails documented by userID.
func ComputeUserStats(userID string, result FetchResult) domain.UserStats {
	stats := domain.UserStats{
		UserID:  userID,
		Source:  result.Source,
		Warning: result.Warning,
	}
	for _, record := range result.Records {
		stats.TrailCount++
		if record.IsPublic {
			stats.PublicCount++
		}
		stats.TotalDistance += record.Distance()
		stats.LikesReceived += record.Community.Likes
		stats.ViewsReceived += record.Community.Views
		if record.GeneratedAt.After(stats.LatestTrailAt) {
			stats.LatestTrailAt = record.GeneratedAt
		}
	}
	return stats
}
