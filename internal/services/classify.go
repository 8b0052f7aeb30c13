package services

import (
	"math"
	"strings"

	"golang.org/x/text/cases"

	domain "github.com/trailaccess/trailguide/internal/domain"
)

// The classifiers below map free-text survey answers onto fixed enums by substring
// match. The mapping is lossy: rules are evaluated in order and the first match wins,
// so overlapping phrasings (for example "not fully accessible") land in the earlier
// bucket. Empty or unrecognised accessibility answers fall into TierNot, which therefore
// mixes confirmed-inaccessible trails with unrated ones.

// TierRule assigns Tier to any answer containing one of Contains.
type TierRule struct {
	Contains []string
	Tier     domain.AccessibilityTier
}

// TierRules is evaluated in order; answers matching no rule classify as TierNot.
var TierRules = []TierRule{
	{Contains: []string{"fully"}, Tier: domain.TierFully},
	{Contains: []string{"partial", "assistance"}, Tier: domain.TierPartial},
	{Contains: []string{"not accessible"}, Tier: domain.TierNot},
}

// SurfaceRule assigns Surface to any description containing one of Contains.
type SurfaceRule struct {
	Contains []string
	Surface  domain.SurfaceType
}

// SurfaceRules is evaluated in order; descriptions matching no rule are SurfaceUnknown.
var SurfaceRules = []SurfaceRule{
	{Contains: []string{"mixed", "varied", "combination"}, Surface: domain.SurfaceMixed},
	{Contains: []string{"paved", "asphalt", "concrete"}, Surface: domain.SurfacePaved},
	{Contains: []string{"gravel", "crushed stone"}, Surface: domain.SurfacePackedGravel},
	{Contains: []string{"boardwalk", "wooden"}, Surface: domain.SurfaceBoardwalk},
	{Contains: []string{"dirt", "natural", "grass", "earth"}, Surface: domain.SurfaceDirt},
}

// DistanceRange is the half-open interval [Min, Max) in meters.
type DistanceRange struct {
	ID  domain.DistanceRangeID
	Min float64
	Max float64
}

// Contains reports whether meters falls inside the range.
func (r DistanceRange) Contains(meters float64) bool {
	return meters >= r.Min && meters < r.Max
}

// DistanceRanges lists the named ranges; the last is unbounded above.
var DistanceRanges = []DistanceRange{
	{ID: domain.DistanceShort, Min: 0, Max: 2000},
	{ID: domain.DistanceMedium, Min: 2000, Max: 5000},
	{ID: domain.DistanceLong, Min: 5000, Max: 10000},
	{ID: domain.DistanceExtended, Min: 10000, Max: math.Inf(1)},
}

// fold returns the case-folded form used for every text comparison. cases.Caser keeps
// state between calls, so each use gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ClassifyTier maps a free-text wheelchair access answer onto an accessibility tier.
// Blank or unrecognised answers land in TierNot alongside trails rated inaccessible.
func ClassifyTier(wheelchairAccess string) domain.AccessibilityTier {
	text := fold(strings.TrimSpace(wheelchairAccess))
	for _, rule := range TierRules {
		if containsAny(text, rule.Contains) {
			return rule.Tier
		}
	}
	return domain.TierNot
}

// ClassifySurface maps a free-text trail surface description onto a surface bucket.
func ClassifySurface(trailSurface string) domain.SurfaceType {
	text := fold(strings.TrimSpace(trailSurface))
	for _, rule := range SurfaceRules {
		if containsAny(text, rule.Contains) {
			return rule.Surface
		}
	}
	return domain.SurfaceUnknown
}

// LookupDistanceRange returns the range named id.
func LookupDistanceRange(id domain.DistanceRangeID) (DistanceRange, bool) {
	for _, r := range DistanceRanges {
		if r.ID == id {
			return r, true
		}
	}
	return DistanceRange{}, false
}

// RatingClassifier is the opaque accessibility rating consumed by the statistics view.
type RatingClassifier func(domain.TrailGuide) domain.AccessibilityTier

// DefaultRating classifies a record by its wheelchair access answer.
func DefaultRating(record domain.TrailGuide) domain.AccessibilityTier {
	return ClassifyTier(record.Accessibility.WheelchairAccess)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
