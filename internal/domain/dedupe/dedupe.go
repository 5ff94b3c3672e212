// Package dedupe merges hotspot candidates from several sources and drops
// near-duplicates.
package dedupe

import (
	"sort"

	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
)

// DefaultThresholdKm is the minimum separation between merged hotspots.
const DefaultThresholdKm = 0.1

// Aggregator merges hotspot lists. It holds configuration only and is safe
// for concurrent use.
type Aggregator struct {
	thresholdKm float64
}

// NewAggregator creates an Aggregator with the given options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{thresholdKm: DefaultThresholdKm}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the configured minimum separation in kilometers.
func (a *Aggregator) Threshold() float64 { return a.thresholdKm }

// Merge combines a and b with the configured threshold. See Merge.
func (a *Aggregator) Merge(first, second []model.HotspotResult) []model.HotspotResult {
	return Merge(first, second, a.thresholdKm)
}

// Merge walks first then second in order and keeps a candidate only when it
// is at least thresholdKm from every candidate kept so far. The first-seen
// member of a cluster always survives, so entries of first take precedence.
// The result is sorted by DistanceKm; equal distances keep walk order.
func Merge(first, second []model.HotspotResult, thresholdKm float64) []model.HotspotResult {
	out := make([]model.HotspotResult, 0, len(first)+len(second))
	consider := func(c model.HotspotResult) {
		for _, kept := range out {
			if geo.DistanceKm(kept.Point, c.Point) < thresholdKm {
				return
			}
		}
		out = append(out, c)
	}
	for _, c := range first {
		consider(c)
	}
	for _, c := range second {
		consider(c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}
