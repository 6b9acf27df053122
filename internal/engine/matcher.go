package engine

import (
	"sort"
	"strings"

	"import-scout/internal/vehicle"
)

// Matcher joins source and destination aggregates on the vehicle key.
// Keys are unique per side, so at most one match exists per key per run.
type Matcher struct {
	// MinSourceSamples and MinDestinationSamples are the independent
	// minimum sample counts a key needs on each side to be matched.
	MinSourceSamples      int
	MinDestinationSamples int
}

// NewMatcher returns a Matcher with the default minimum of 3 samples per side.
func NewMatcher() Matcher {
	return Matcher{MinSourceSamples: 3, MinDestinationSamples: 3}
}

// Match produces every MatchedVehicle whose key appears on both sides with
// sufficient samples, optionally narrowed by filter. Keys are re-normalized
// before joining so case or whitespace variants still meet. One-sided and
// under-sampled keys are silently excluded. Output order is deterministic
// (sorted by key).
func (m Matcher) Match(source []vehicle.SourceAggregate, destination []vehicle.DestinationAggregate, filter Filter) []MatchedVehicle {
	minSrc := m.MinSourceSamples
	if minSrc <= 0 {
		minSrc = 3
	}
	minDst := m.MinDestinationSamples
	if minDst <= 0 {
		minDst = 3
	}

	bySrcKey := make(map[vehicle.Key]vehicle.SourceAggregate, len(source))
	for _, agg := range source {
		if agg.SampleCount < minSrc {
			continue
		}
		agg.Key = renormalize(agg.Key)
		bySrcKey[agg.Key] = agg
	}

	var matches []MatchedVehicle
	for _, agg := range destination {
		if agg.SampleCount < minDst {
			continue
		}
		agg.Key = renormalize(agg.Key)
		if !matchesFilter(agg.Key, filter) {
			continue
		}
		src, ok := bySrcKey[agg.Key]
		if !ok {
			continue
		}
		matches = append(matches, MatchedVehicle{Key: agg.Key, Source: src, Destination: agg})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Key.String() < matches[j].Key.String()
	})
	return matches
}

func renormalize(k vehicle.Key) vehicle.Key {
	return vehicle.NewKey(k.Make, k.Model, k.Year, k.FuelType)
}

func matchesFilter(k vehicle.Key, f Filter) bool {
	if f.Make != "" && !strings.EqualFold(strings.TrimSpace(f.Make), k.Make) {
		return false
	}
	if f.Model != "" && !strings.EqualFold(strings.TrimSpace(f.Model), k.Model) {
		return false
	}
	return true
}
