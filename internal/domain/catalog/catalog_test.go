package catalog_test

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/okian/hotspot/internal/domain/catalog"
	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(lat, lng, risk float64) model.ScoredPoint {
	return model.ScoredPoint{Point: model.Point{Lat: lat, Lng: lng}, RiskScore: risk}
}

func randomPoints(n int, seed int64, lat, lng, spread float64) []model.ScoredPoint {
	r := rand.New(rand.NewSource(seed))
	out := make([]model.ScoredPoint, n)
	for i := range out {
		out[i] = scored(lat+(r.Float64()*2-1)*spread, lng+(r.Float64()*2-1)*spread, r.Float64())
	}
	return out
}

func TestNew(t *testing.T) {
	Convey("Given a catalog of scored points", t, func() {
		points := []model.ScoredPoint{
			scored(41.90, -87.63, 0.2),
			scored(41.91, -87.64, 0.9),
			scored(41.92, -87.65, 0.5),
			scored(41.93, -87.66, 0.9),
		}

		Convey("When built with a quarter top fraction", func() {
			c, err := catalog.New(points, catalog.WithTopFraction(0.25))
			So(err, ShouldBeNil)

			Convey("Then exactly ceil(0.25*4) points are flagged and ties keep input order", func() {
				So(c.Len(), ShouldEqual, 4)
				So(c.HotspotCount(), ShouldEqual, 1)
				So(c.Hotspots()[0].Point, ShouldResemble, points[1].Point)
				So(c.Hotspots()[0].IsHotspot, ShouldBeTrue)
			})
		})

		Convey("When built with the default fraction", func() {
			c, err := catalog.New(points)
			So(err, ShouldBeNil)

			Convey("Then the ceiling still flags one point", func() {
				So(c.HotspotCount(), ShouldEqual, 1)
			})
		})

		Convey("When built with a fraction of one", func() {
			c, err := catalog.New(points, catalog.WithTopFraction(1))
			So(err, ShouldBeNil)
			So(c.HotspotCount(), ShouldEqual, 4)
		})

		Convey("When a caller pre-flags a point", func() {
			in := append([]model.ScoredPoint(nil), points...)
			in[0].IsHotspot = true
			c, err := catalog.New(in, catalog.WithTopFraction(0.25))
			So(err, ShouldBeNil)

			Convey("Then the flag is recomputed from scores", func() {
				So(c.HotspotCount(), ShouldEqual, 1)
				So(c.Hotspots()[0].RiskScore, ShouldEqual, 0.9)
			})
		})

		Convey("When a point is out of range", func() {
			_, err := catalog.New([]model.ScoredPoint{scored(95, 0, 0.5)})

			Convey("Then an invalid point error wraps the coordinate error", func() {
				So(errors.Is(err, catalog.ErrInvalidPoint), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidCoordinate), ShouldBeTrue)
			})
		})

		Convey("When a risk score is above one", func() {
			_, err := catalog.New([]model.ScoredPoint{scored(0, 0, 1.5)})
			So(errors.Is(err, catalog.ErrInvalidPoint), ShouldBeTrue)
		})
	})
}

func TestQuery(t *testing.T) {
	Convey("Given one hotspot near downtown Chicago", t, func() {
		c, err := catalog.New([]model.ScoredPoint{scored(41.90, -87.63, 0.9)}, catalog.WithTopFraction(1))
		So(err, ShouldBeNil)
		center := model.Point{Lat: 41.905, Lng: -87.635}

		Convey("When querying with a 2 km radius", func() {
			res := c.Query(center, 2)

			Convey("Then the hotspot is returned with its distance", func() {
				So(res, ShouldHaveLength, 1)
				So(res[0].DistanceKm, ShouldAlmostEqual, 0.68, 0.07)
				So(res[0].Source, ShouldEqual, model.SourceCatalog)
				So(res[0].RiskScore, ShouldEqual, 0.9)
			})
		})

		Convey("When querying with a radius shorter than the distance", func() {
			So(c.Query(center, 0.5), ShouldBeEmpty)
		})
	})

	Convey("Given an empty catalog", t, func() {
		c, err := catalog.New(nil)
		So(err, ShouldBeNil)

		Convey("Then a query returns an empty result", func() {
			res := c.Query(model.Point{Lat: 10, Lng: 10}, 5)
			So(res, ShouldNotBeNil)
			So(res, ShouldBeEmpty)
			So(c.Hotspots(), ShouldBeEmpty)
		})
	})

	Convey("Given a dense random catalog", t, func() {
		points := randomPoints(3000, 7, 41.9, -87.6, 0.3)
		indexed, err := catalog.New(points, catalog.WithTopFraction(0.2))
		So(err, ShouldBeNil)
		linear, err := catalog.New(points, catalog.WithTopFraction(0.2), catalog.WithLinearScan())
		So(err, ShouldBeNil)

		Convey("When the same queries run against the index and a linear scan", func() {
			r := rand.New(rand.NewSource(11))
			for i := 0; i < 50; i++ {
				center := model.Point{Lat: 41.9 + (r.Float64()*2-1)*0.3, Lng: -87.6 + (r.Float64()*2-1)*0.3}
				radius := 0.5 + r.Float64()*10
				a := indexed.Query(center, radius)
				b := linear.Query(center, radius)

				So(a, ShouldResemble, b)
				for j, h := range a {
					So(h.DistanceKm, ShouldBeLessThanOrEqualTo, radius)
					So(h.DistanceKm, ShouldEqual, geo.DistanceKm(center, h.Point))
					if j > 0 {
						So(h.DistanceKm, ShouldBeGreaterThanOrEqualTo, a[j-1].DistanceKm)
					}
				}
			}
		})
	})

	Convey("Given hotspots on both sides of the antimeridian", t, func() {
		c, err := catalog.New([]model.ScoredPoint{
			scored(0, 179.99, 0.9),
			scored(0, -179.99, 0.9),
		}, catalog.WithTopFraction(1))
		So(err, ShouldBeNil)

		Convey("When querying across it", func() {
			res := c.Query(model.Point{Lat: 0, Lng: 180}, 5)

			Convey("Then the linear fallback finds both", func() {
				So(res, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a hotspot near the north pole", t, func() {
		c, err := catalog.New([]model.ScoredPoint{scored(89.99, 120, 0.9)}, catalog.WithTopFraction(1))
		So(err, ShouldBeNil)

		Convey("When querying from the other side of the pole", func() {
			res := c.Query(model.Point{Lat: 89.99, Lng: -60}, 5)
			So(res, ShouldHaveLength, 1)
		})
	})
}

func TestHolder(t *testing.T) {
	Convey("Given a holder", t, func() {
		first, err := catalog.New([]model.ScoredPoint{scored(1, 1, 0.5)}, catalog.WithTopFraction(1))
		So(err, ShouldBeNil)
		second, err := catalog.New(randomPoints(10, 3, 1, 1, 0.01), catalog.WithTopFraction(1))
		So(err, ShouldBeNil)

		Convey("When nothing was stored", func() {
			h := catalog.NewHolder(nil)
			So(h.Load(), ShouldNotBeNil)
			So(h.Load().Len(), ShouldEqual, 0)
		})

		Convey("When a snapshot is swapped during concurrent reads", func() {
			h := catalog.NewHolder(first)
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 200; j++ {
						n := len(h.Load().Query(model.Point{Lat: 1, Lng: 1}, 50))
						if n != 1 && n != 10 {
							panic("observed a partial catalog")
						}
					}
				}()
			}
			prev := h.Swap(second)
			wg.Wait()

			Convey("Then readers see one snapshot or the other", func() {
				So(prev, ShouldEqual, first)
				So(h.Load(), ShouldEqual, second)
			})
		})
	})
}
