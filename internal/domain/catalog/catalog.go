// Package catalog holds the known, pre-scored risk points and answers
// radius queries over the ones flagged as hotspots.
//
// A Catalog is immutable after New returns. Reloads build a fresh Catalog
// and publish it through a Holder, so readers never see a partial update.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
)

const (
	// DefaultTopFraction is the share of points flagged as hotspots.
	DefaultTopFraction = 0.10

	// rtree node fan-out.
	minBranch = 25
	maxBranch = 50

	// pointTolerance gives indexed points a non-degenerate rectangle.
	pointTolerance = 1e-9

	// boxMarginDeg pads the search box against rounding at its edges.
	boxMarginDeg = 1e-6
)

// ErrInvalidPoint is returned by New for points with bad coordinates or a
// risk score outside [0, 1].
var ErrInvalidPoint = errors.New("invalid catalog point")

// Option configures a Catalog.
type Option func(*Catalog)

// WithTopFraction sets the share of points, by descending risk, flagged as
// hotspots. Values outside (0, 1] are ignored.
func WithTopFraction(f float64) Option {
	return func(c *Catalog) {
		if f > 0 && f <= 1 {
			c.topFraction = f
		}
	}
}

// WithLinearScan disables the spatial index.
func WithLinearScan() Option {
	return func(c *Catalog) {
		c.linear = true
	}
}

// Catalog is an immutable set of scored points.
type Catalog struct {
	topFraction float64
	linear      bool

	points   []model.ScoredPoint
	hotspots []model.ScoredPoint
	tree     *rtreego.Rtree
}

type indexed struct {
	rect rtreego.Rect
	idx  int
}

func (i indexed) Bounds() rtreego.Rect { return i.rect }

// New validates points and flags the top ceil(topFraction*N) by risk score.
// Ties keep input order. Any IsHotspot value on the input is ignored.
func New(points []model.ScoredPoint, opts ...Option) (*Catalog, error) {
	c := &Catalog{topFraction: DefaultTopFraction}
	for _, opt := range opts {
		opt(c)
	}

	c.points = make([]model.ScoredPoint, len(points))
	for i, p := range points {
		if err := model.ValidatePoint(p.Point); err != nil {
			return nil, fmt.Errorf("%w at index %d: %w", ErrInvalidPoint, i, err)
		}
		if math.IsNaN(p.RiskScore) || p.RiskScore < 0 || p.RiskScore > 1 {
			return nil, fmt.Errorf("%w at index %d: risk score %v outside [0, 1]", ErrInvalidPoint, i, p.RiskScore)
		}
		c.points[i] = model.ScoredPoint{Point: p.Point, RiskScore: p.RiskScore}
	}

	order := make([]int, len(c.points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.points[order[a]].RiskScore > c.points[order[b]].RiskScore
	})

	k := int(math.Ceil(c.topFraction * float64(len(c.points))))
	if k > len(c.points) {
		k = len(c.points)
	}
	for _, i := range order[:k] {
		c.points[i].IsHotspot = true
	}

	c.hotspots = make([]model.ScoredPoint, 0, k)
	for _, p := range c.points {
		if p.IsHotspot {
			c.hotspots = append(c.hotspots, p)
		}
	}

	if !c.linear && len(c.hotspots) > 0 {
		items := make([]rtreego.Spatial, len(c.hotspots))
		for i, h := range c.hotspots {
			items[i] = indexed{rect: rtreego.Point{h.Lat, h.Lng}.ToRect(pointTolerance), idx: i}
		}
		c.tree = rtreego.NewTree(2, minBranch, maxBranch, items...)
	}
	return c, nil
}

// Len is the number of points in the catalog.
func (c *Catalog) Len() int { return len(c.points) }

// HotspotCount is the number of points flagged as hotspots.
func (c *Catalog) HotspotCount() int { return len(c.hotspots) }

// Hotspots returns a copy of the flagged points in input order.
func (c *Catalog) Hotspots() []model.ScoredPoint {
	out := make([]model.ScoredPoint, len(c.hotspots))
	copy(out, c.hotspots)
	return out
}

// Query returns every hotspot within radiusKm of center, nearest first.
// The caller validates center and radius.
func (c *Catalog) Query(center model.Point, radiusKm float64) []model.HotspotResult {
	var candidates []int
	if rect, ok := c.searchRect(center, radiusKm); ok {
		for _, s := range c.tree.SearchIntersect(rect) {
			candidates = append(candidates, s.(indexed).idx)
		}
		sort.Ints(candidates)
	} else {
		candidates = make([]int, len(c.hotspots))
		for i := range candidates {
			candidates[i] = i
		}
	}

	out := make([]model.HotspotResult, 0, len(candidates))
	for _, i := range candidates {
		h := c.hotspots[i]
		d := geo.DistanceKm(center, h.Point)
		if d <= radiusKm {
			out = append(out, model.HotspotResult{
				Point:      h.Point,
				RiskScore:  h.RiskScore,
				DistanceKm: d,
				Source:     model.SourceCatalog,
			})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceKm < out[b].DistanceKm })
	return out
}

// searchRect builds the degree-space box bounding the spherical cap around
// center. It reports false when the index is off or the cap touches a pole
// or crosses the antimeridian; the caller then scans linearly.
func (c *Catalog) searchRect(center model.Point, radiusKm float64) (rtreego.Rect, bool) {
	if c.tree == nil {
		return rtreego.Rect{}, false
	}
	arc := radiusKm / geo.EarthRadiusKm
	dLat := arc*180/math.Pi + boxMarginDeg
	if math.Abs(center.Lat)+dLat >= 90 {
		return rtreego.Rect{}, false
	}
	s := math.Sin(arc) / math.Cos(center.Lat*math.Pi/180)
	if s >= 1 {
		return rtreego.Rect{}, false
	}
	dLng := math.Asin(s)*180/math.Pi + boxMarginDeg
	if center.Lng-dLng < -180 || center.Lng+dLng > 180 {
		return rtreego.Rect{}, false
	}
	rect, err := rtreego.NewRect(rtreego.Point{center.Lat - dLat, center.Lng - dLng}, []float64{2 * dLat, 2 * dLng})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return rect, true
}

// Holder publishes catalog snapshots. Load and Swap are safe for
// concurrent use; a loaded snapshot stays valid after a swap.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a Holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Load returns the current snapshot. It never returns nil; before the first
// Swap an empty catalog is served.
func (h *Holder) Load() *Catalog {
	if c := h.current.Load(); c != nil {
		return c
	}
	return empty
}

// Swap publishes c and returns the previous snapshot.
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.current.Swap(c)
}

var empty = &Catalog{topFraction: DefaultTopFraction}
