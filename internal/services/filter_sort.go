package services

import (
	"fmt"
	"sort"
	"strings"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

// FilterAndSort filters records by filter then orders them by spec. The input slice and
// its records are left untouched.
func FilterAndSort(records []domain.TrailGuide, filter domain.FilterSpec, spec domain.SortSpec) []domain.TrailGuide {
	return ApplySort(ApplyFilters(records, filter), spec)
}

// ApplyFilters returns the records passing every active predicate, in input order.
func ApplyFilters(records []domain.TrailGuide, filter domain.FilterSpec) []domain.TrailGuide {
	predicates := compilePredicates(filter)
	out := make([]domain.TrailGuide, 0, len(records))
	for _, record := range records {
		if matchesAll(record, predicates) {
			out = append(out, record.Clone())
		}
	}
	return out
}

type predicate func(domain.TrailGuide) bool

func compilePredicates(filter domain.FilterSpec) []predicate {
	var predicates []predicate

	if query := fold(strings.TrimSpace(filter.Query)); query != "" {
		predicates = append(predicates, func(r domain.TrailGuide) bool {
			haystack := fold(strings.Join([]string{
				r.RouteName, r.Description, r.Accessibility.Location, r.UserEmail,
			}, " "))
			return strings.Contains(haystack, query)
		})
	}
	if tier := filter.AccessibilityTier; tier != "" {
		predicates = append(predicates, func(r domain.TrailGuide) bool {
			return ClassifyTier(r.Accessibility.WheelchairAccess) == tier
		})
	}
	if rng, ok := LookupDistanceRange(filter.DistanceRange); ok {
		predicates = append(predicates, func(r domain.TrailGuide) bool {
			return rng.Contains(r.Distance())
		})
	}
	if surface := filter.Surface; surface != domain.SurfaceUnknown {
		predicates = append(predicates, func(r domain.TrailGuide) bool {
			return ClassifySurface(r.Accessibility.TrailSurface) == surface
		})
	}
	if filter.HasPhotos {
		predicates = append(predicates, func(r domain.TrailGuide) bool {
			return r.Metadata.PhotoCount > 0
		})
	}
	return predicates
}

func matchesAll(record domain.TrailGuide, predicates []predicate) bool {
	for _, p := range predicates {
		if !p(record) {
			return false
		}
	}
	return true
}

// ApplySort returns a stably sorted copy of records. Records missing the sort key compare
// lower than any present value: they lead in ascending order and trail in descending order.
func ApplySort(records []domain.TrailGuide, spec domain.SortSpec) []domain.TrailGuide {
	if spec.Field == "" {
		spec = domain.DefaultSort
	}
	compare := comparatorFor(spec.Field)

	out := make([]domain.TrailGuide, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if spec.Direction == domain.SortDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func comparatorFor(field domain.SortField) func(a, b domain.TrailGuide) int {
	switch field {
	case domain.SortByDistance:
		return func(a, b domain.TrailGuide) int {
			return compareMissing(a.Metadata.TotalDistance == nil, b.Metadata.TotalDistance == nil, func() int {
				return compareOrdered(*a.Metadata.TotalDistance, *b.Metadata.TotalDistance)
			})
		}
	case domain.SortByName:
		return func(a, b domain.TrailGuide) int {
			an, bn := fold(strings.TrimSpace(a.RouteName)), fold(strings.TrimSpace(b.RouteName))
			return compareMissing(an == "", bn == "", func() int {
				return strings.Compare(an, bn)
			})
		}
	default:
		return func(a, b domain.TrailGuide) int {
			return compareMissing(a.GeneratedAt.IsZero(), b.GeneratedAt.IsZero(), func() int {
				return compareOrdered(a.GeneratedAt.UnixMilli(), b.GeneratedAt.UnixMilli())
			})
		}
	}
}

func compareMissing(aMissing, bMissing bool, present func() int) int {
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return -1
	case bMissing:
		return 1
	default:
		return present()
	}
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

var sortAliases = map[string]domain.SortField{
	"date":          domain.SortByGeneratedAt,
	"generatedat":   domain.SortByGeneratedAt,
	"distance":      domain.SortByDistance,
	"totaldistance": domain.SortByDistance,
	"name":          domain.SortByName,
}

// ParseSort parses the compact "<field>_<direction>" form, for example "distance_asc".
// An empty value yields DefaultSort.
func ParseSort(value string) (domain.SortSpec, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return domain.DefaultSort, nil
	}
	idx := strings.LastIndex(value, "_")
	if idx <= 0 {
		return domain.SortSpec{}, fmt.Errorf("%w: sort %q must be <field>_<asc|desc>", ErrInvalidInput, value)
	}
	field, ok := sortAliases[value[:idx]]
	if !ok {
		return domain.SortSpec{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, value[:idx])
	}
	direction := domain.SortOrder(value[idx+1:])
	if direction != domain.SortAsc && direction != domain.SortDesc {
		return domain.SortSpec{}, fmt.Errorf("%w: unknown sort direction %q", ErrInvalidInput, direction)
	}
	return domain.SortSpec{Field: field, Direction: direction}, nil
}

// FormatSort renders spec in the compact form accepted by ParseSort.
func FormatSort(spec domain.SortSpec) string {
	field := "date"
	switch spec.Field {
	case domain.SortByDistance:
		field = "distance"
	case domain.SortByName:
		field = "name"
	}
	direction := spec.Direction
	if direction == "" {
		direction = domain.SortDesc
	}
	return field + "_" + string(direction)
}

// FilterInput is the raw, user-supplied form of a FilterSpec.
type FilterInput struct {
	Query     string
	Tier      string
	Distance  string
	Surface   string
	HasPhotos bool
}

// ParseFilter validates input and builds the FilterSpec it describes.
func ParseFilter(input FilterInput) (domain.FilterSpec, error) {
	spec := domain.FilterSpec{
		Query:         strings.TrimSpace(input.Query),
		DistanceRange: domain.DistanceAny,
		HasPhotos:     input.HasPhotos,
	}

	switch tier := domain.AccessibilityTier(strings.ToLower(strings.TrimSpace(input.Tier))); tier {
	case "", "all":
	case domain.TierFully, domain.TierPartial, domain.TierNot:
		spec.AccessibilityTier = tier
	default:
		return domain.FilterSpec{}, fmt.Errorf("%w: unknown accessibility tier %q", ErrInvalidInput, input.Tier)
	}

	if distance := domain.DistanceRangeID(strings.ToLower(strings.TrimSpace(input.Distance))); distance != "" && distance != domain.DistanceAny {
		if _, ok := LookupDistanceRange(distance); !ok {
			return domain.FilterSpec{}, fmt.Errorf("%w: unknown distance range %q", ErrInvalidInput, input.Distance)
		}
		spec.DistanceRange = distance
	}

	switch surface := domain.SurfaceType(strings.ToLower(strings.TrimSpace(input.Surface))); surface {
	case "", "all":
	case domain.SurfacePaved, domain.SurfacePackedGravel, domain.SurfaceDirt, domain.SurfaceBoardwalk, domain.SurfaceMixed:
		spec.Surface = surface
	default:
		return domain.FilterSpec{}, fmt.Errorf("%w: unknown surface %q", ErrInvalidInput, input.Surface)
	}

	return spec, nil
}
