// Package generator synthesizes hotspots around a query center. Output
// depends only on the inputs: the same center and radius always yield the
// same list, and concurrent calls never share random state.
package generator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
)

const (
	defaultBaseCount   = 2
	defaultDensity     = 1.5
	defaultMinOffsetKm = 0.1
	defaultRiskMin     = 0.7
	defaultRiskMax     = 0.95

	maxRangeFactor = 0.9
	seedScale      = 1e6
	minCosLat      = 0.01
)

// Option configures a Generator.
type Option func(*Generator)

// WithBaseCount sets the number of spots generated regardless of radius.
func WithBaseCount(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.baseCount = n
		}
	}
}

// WithDensity sets the extra spots generated per kilometer of radius.
func WithDensity(d float64) Option {
	return func(g *Generator) {
		if d >= 0 && !math.IsInf(d, 0) {
			g.density = d
		}
	}
}

// WithMinOffset sets the minimum distance between the center and a spot.
func WithMinOffset(km float64) Option {
	return func(g *Generator) {
		if km >= 0 && !math.IsInf(km, 0) {
			g.minOffsetKm = km
		}
	}
}

// WithRiskRange sets the range risk scores are drawn from. Invalid ranges
// are ignored.
func WithRiskRange(lo, hi float64) Option {
	return func(g *Generator) {
		if lo >= 0 && hi <= 1 && lo <= hi {
			g.riskMin, g.riskMax = lo, hi
		}
	}
}

// Generator produces synthetic hotspots. It holds configuration only and
// is safe for concurrent use.
type Generator struct {
	baseCount   int
	density     float64
	minOffsetKm float64
	riskMin     float64
	riskMax     float64
}

// New creates a Generator with the given options.
func New(opts ...Option) *Generator {
	g := &Generator{
		baseCount:   defaultBaseCount,
		density:     defaultDensity,
		minOffsetKm: defaultMinOffsetKm,
		riskMin:     defaultRiskMin,
		riskMax:     defaultRiskMax,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Seed derives the random seed for a center.
func Seed(center model.Point) int64 {
	return int64(math.Abs(center.Lat)*seedScale + math.Abs(center.Lng)*seedScale)
}

// Count is the number of spots Generate returns for radiusKm.
func (g *Generator) Count(radiusKm float64) int {
	return g.baseCount + int(math.Floor(radiusKm*g.density))
}

// offsetRange returns the distance range spots are drawn from and whether
// it had to be collapsed to a single value.
func (g *Generator) offsetRange(radiusKm float64) (lo, hi float64, clamped bool) {
	lo = g.minOffsetKm
	hi = math.Min(radiusKm*maxRangeFactor, radiusKm-g.minOffsetKm)
	if radiusKm < 2*g.minOffsetKm || hi < lo {
		return radiusKm / 2, radiusKm / 2, true
	}
	return lo, hi, false
}

// Clamped reports whether radiusKm is too small for the configured minimum
// offset, in which case every spot sits at half the radius.
func (g *Generator) Clamped(radiusKm float64) bool {
	_, _, clamped := g.offsetRange(radiusKm)
	return clamped
}

// Generate returns Count(radiusKm) spots around center sorted by distance.
// The caller validates center and radius.
func (g *Generator) Generate(center model.Point, radiusKm float64) []model.HotspotResult {
	rng := rand.New(rand.NewSource(Seed(center))) //nolint:gosec // reproducible placement, not security
	lo, hi, _ := g.offsetRange(radiusKm)
	cosLat := math.Max(math.Abs(math.Cos(center.Lat*math.Pi/180)), minCosLat)

	n := g.Count(radiusKm)
	out := make([]model.HotspotResult, 0, n)
	for i := 0; i < n; i++ {
		dist := lo + rng.Float64()*(hi-lo)
		bearing := rng.Float64() * 2 * math.Pi
		risk := g.riskMin + rng.Float64()*(g.riskMax-g.riskMin)

		p := model.Point{
			Lat: geo.ClampLat(center.Lat + dist*math.Cos(bearing)/geo.KmPerDegreeLat),
			Lng: geo.NormalizeLng(center.Lng + dist*math.Sin(bearing)/(geo.KmPerDegreeLat*cosLat)),
		}
		out = append(out, model.HotspotResult{
			Point:      p,
			RiskScore:  risk,
			DistanceKm: geo.DistanceKm(center, p),
			Source:     model.SourceGenerated,
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceKm < out[b].DistanceKm })
	return out
}
