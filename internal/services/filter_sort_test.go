package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

func filterSpecs() []domain.FilterSpec {
	return []domain.FilterSpec{
		{},
		{Query: "LAKE"},
		{Query: "ana@example"},
		{AccessibilityTier: domain.TierFully},
		{AccessibilityTier: domain.TierPartial},
		{AccessibilityTier: domain.TierNot},
		{DistanceRange: domain.DistanceAny},
		{DistanceRange: domain.DistanceShort},
		{DistanceRange: domain.DistanceLong},
		{DistanceRange: domain.DistanceExtended},
		{Surface: domain.SurfacePaved},
		{Surface: domain.SurfaceDirt},
		{HasPhotos: true},
		{Query: "path", AccessibilityTier: domain.TierNot, DistanceRange: domain.DistanceExtended, Surface: domain.SurfaceDirt, HasPhotos: true},
	}
}

func TestApplyFiltersReturnsSubset(t *testing.T) {
	records := sampleCatalog()
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.ID] = true
	}

	for _, spec := range filterSpecs() {
		got := ApplyFilters(records, spec)
		assert.LessOrEqual(t, len(got), len(records), "spec %+v", spec)
		seen := map[string]bool{}
		for _, r := range got {
			assert.True(t, known[r.ID], "spec %+v produced unknown record %s", spec, r.ID)
			assert.False(t, seen[r.ID], "spec %+v duplicated %s", spec, r.ID)
			seen[r.ID] = true
		}
	}
}

func TestFilterAndSortIsIdempotent(t *testing.T) {
	records := sampleCatalog()
	sorts := []domain.SortSpec{
		domain.DefaultSort,
		{Field: domain.SortByDistance, Direction: domain.SortAsc},
		{Field: domain.SortByName, Direction: domain.SortDesc},
	}
	for _, spec := range filterSpecs() {
		for _, order := range sorts {
			once := FilterAndSort(records, spec, order)
			twice := FilterAndSort(once, spec, order)
			assert.Equal(t, ids(once), ids(twice), "filter %+v sort %+v", spec, order)
		}
	}
}

func TestFilterAndSortDoesNotMutateInput(t *testing.T) {
	records := sampleCatalog()
	before := ids(records)

	out := FilterAndSort(records, domain.FilterSpec{}, domain.SortSpec{Field: domain.SortByName, Direction: domain.SortAsc})
	out[0].RouteName = "changed"
	*out[1].Metadata.TotalDistance = -1

	assert.Equal(t, before, ids(records))
	for _, r := range records {
		assert.NotEqual(t, "changed", r.RouteName)
		if r.Metadata.TotalDistance != nil {
			assert.NotEqual(t, -1.0, *r.Metadata.TotalDistance)
		}
	}
}

func TestDistanceRangeBoundaries(t *testing.T) {
	records := []domain.TrailGuide{
		{ID: "at-min", Metadata: domain.RouteMetadata{TotalDistance: meters(2000)}},
		{ID: "at-max", Metadata: domain.RouteMetadata{TotalDistance: meters(5000)}},
		{ID: "inside", Metadata: domain.RouteMetadata{TotalDistance: meters(4999.9)}},
	}
	got := ApplyFilters(records, domain.FilterSpec{DistanceRange: domain.DistanceMedium})
	assert.Equal(t, []string{"at-min", "inside"}, ids(got))

	huge := []domain.TrailGuide{{ID: "far", Metadata: domain.RouteMetadata{TotalDistance: meters(1e9)}}}
	assert.Len(t, ApplyFilters(huge, domain.FilterSpec{DistanceRange: domain.DistanceExtended}), 1)

	missing := []domain.TrailGuide{{ID: "unknown"}}
	assert.Len(t, ApplyFilters(missing, domain.FilterSpec{DistanceRange: domain.DistanceShort}), 1, "missing distance counts as zero")
	assert.Len(t, ApplyFilters(missing, domain.FilterSpec{DistanceRange: domain.DistanceAny}), 1)
}

func TestSortByDistanceAscending(t *testing.T) {
	records := []domain.TrailGuide{
		{ID: "a", Metadata: domain.RouteMetadata{TotalDistance: meters(5000)}},
		{ID: "b", Metadata: domain.RouteMetadata{TotalDistance: meters(1000)}},
		{ID: "c", Metadata: domain.RouteMetadata{TotalDistance: meters(3000)}},
	}
	spec, err := ParseSort("distance_asc")
	require.NoError(t, err)

	got := ApplySort(records, spec)
	var distances []float64
	for _, r := range got {
		distances = append(distances, r.Distance())
	}
	assert.Equal(t, []float64{1000, 3000, 5000}, distances)
}

func TestPartialTierFilter(t *testing.T) {
	records := []domain.TrailGuide{
		{ID: "assisted", Accessibility: domain.Accessibility{WheelchairAccess: "Accessible with assistance"}},
		{ID: "full", Accessibility: domain.Accessibility{WheelchairAccess: "Fully accessible"}},
	}
	got := ApplyFilters(records, domain.FilterSpec{AccessibilityTier: domain.TierPartial})
	assert.Equal(t, []string{"assisted"}, ids(got))
}

func TestSortPlacesMissingValuesAtTheExtremes(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.TrailGuide{
		{ID: "new", GeneratedAt: base.Add(time.Hour)},
		{ID: "missing-1"},
		{ID: "old", GeneratedAt: base},
		{ID: "missing-2"},
	}

	asc := ApplySort(records, domain.SortSpec{Field: domain.SortByGeneratedAt, Direction: domain.SortAsc})
	assert.Equal(t, []string{"missing-1", "missing-2", "old", "new"}, ids(asc))

	desc := ApplySort(records, domain.SortSpec{Field: domain.SortByGeneratedAt, Direction: domain.SortDesc})
	assert.Equal(t, []string{"new", "old", "missing-1", "missing-2"}, ids(desc))
}

func TestSortByNameIsCaseInsensitiveAndStable(t *testing.T) {
	records := []domain.TrailGuide{
		{ID: "1", RouteName: "beta"},
		{ID: "2", RouteName: "Alpha"},
		{ID: "3", RouteName: "BETA"},
		{ID: "4", RouteName: "alpha"},
	}
	got := ApplySort(records, domain.SortSpec{Field: domain.SortByName, Direction: domain.SortAsc})
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(got))
}

func TestQueryFilterSearchesAllTextFields(t *testing.T) {
	records := sampleCatalog()
	tests := map[string][]string{
		"lakeside": {"lake"},
		"NORTH":    {"ridge"},
		"flat":     {"lake"},
		"cy@":      {"boardwalk"},
		"  ":       {"lake", "ridge", "forest", "boardwalk"},
		"nowhere":  {},
	}
	for query, want := range tests {
		got := ApplyFilters(records, domain.FilterSpec{Query: query})
		assert.Equal(t, want, ids(got), "query %q", query)
	}
}

func TestClassifiers(t *testing.T) {
	tiers := map[string]domain.AccessibilityTier{
		"Fully accessible":           domain.TierFully,
		"Partially accessible":       domain.TierPartial,
		"Accessible with assistance": domain.TierPartial,
		"Not accessible":             domain.TierNot,
		"":                           domain.TierNot,
		"unsure":                     domain.TierNot,
	}
	for input, want := range tiers {
		assert.Equal(t, want, ClassifyTier(input), "tier of %q", input)
	}
	// Overlap is preserved: the first matching rule wins.
	assert.Equal(t, domain.TierFully, ClassifyTier("Not fully accessible"))

	surfaces := map[string]domain.SurfaceType{
		"Paved asphalt":      domain.SurfacePaved,
		"Packed gravel":      domain.SurfacePackedGravel,
		"Wooden boardwalk":   domain.SurfaceBoardwalk,
		"Dirt and roots":     domain.SurfaceDirt,
		"Mixed paved / dirt": domain.SurfaceMixed,
		"sand":               domain.SurfaceUnknown,
	}
	for input, want := range surfaces {
		assert.Equal(t, want, ClassifySurface(input), "surface of %q", input)
	}
}

func TestParseSort(t *testing.T) {
	tests := map[string]domain.SortSpec{
		"":                   domain.DefaultSort,
		"date_desc":          {Field: domain.SortByGeneratedAt, Direction: domain.SortDesc},
		"generatedAt_asc":    {Field: domain.SortByGeneratedAt, Direction: domain.SortAsc},
		"distance_asc":       {Field: domain.SortByDistance, Direction: domain.SortAsc},
		"NAME_DESC":          {Field: domain.SortByName, Direction: domain.SortDesc},
		"totalDistance_desc": {Field: domain.SortByDistance, Direction: domain.SortDesc},
	}
	for input, want := range tests {
		got, err := ParseSort(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		assert.Equal(t, FormatSort(got), FormatSort(want))
	}

	for _, bad := range []string{"distance", "height_asc", "name_up", "_asc"} {
		_, err := ParseSort(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestParseFilter(t *testing.T) {
	spec, err := ParseFilter(FilterInput{Query: " lake ", Tier: "Partial", Distance: "long", Surface: "packed_gravel", HasPhotos: true})
	require.NoError(t, err)
	assert.Equal(t, domain.FilterSpec{
		Query:             "lake",
		AccessibilityTier: domain.TierPartial,
		DistanceRange:     domain.DistanceLong,
		Surface:           domain.SurfacePackedGravel,
		HasPhotos:         true,
	}, spec)

	spec, err = ParseFilter(FilterInput{Tier: "all", Surface: "all"})
	require.NoError(t, err)
	assert.Equal(t, domain.FilterSpec{DistanceRange: domain.DistanceAny}, spec)

	for _, bad := range []FilterInput{{Tier: "sometimes"}, {Distance: "marathon"}, {Surface: "lava"}} {
		_, err := ParseFilter(bad)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}
