package geo_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func randomPoint(rng *rand.Rand) model.Point {
	return model.Point{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180}
}

func TestDistanceKm(t *testing.T) {
	Convey("Given the great-circle distance", t, func() {
		Convey("When measuring a known city pair", func() {
			london := model.Point{Lat: 51.5074, Lng: -0.1278}
			paris := model.Point{Lat: 48.8566, Lng: 2.3522}

			Convey("Then it should be close to the published distance", func() {
				So(geo.DistanceKm(london, paris), ShouldAlmostEqual, 343.5, 1.0)
			})
		})

		Convey("When measuring the worked example", func() {
			spot := model.Point{Lat: 41.90, Lng: -87.63}
			center := model.Point{Lat: 41.905, Lng: -87.635}

			Convey("Then it should be about 0.68 km", func() {
				So(geo.DistanceKm(spot, center), ShouldAlmostEqual, 0.68, 0.07)
			})
		})

		Convey("When the points are identical", func() {
			p := model.Point{Lat: 12.34, Lng: 56.78}
			So(geo.DistanceKm(p, p), ShouldEqual, 0)
		})

		Convey("When the points are antipodal", func() {
			d := geo.DistanceKm(model.Point{Lat: 0, Lng: 0}, model.Point{Lat: 0, Lng: 180})

			Convey("Then it should be half the circumference and not NaN", func() {
				So(math.IsNaN(d), ShouldBeFalse)
				So(d, ShouldAlmostEqual, math.Pi*geo.EarthRadiusKm, 1e-6)
			})
		})

		Convey("When the points are nearly identical", func() {
			a := model.Point{Lat: 45, Lng: 45}
			b := model.Point{Lat: 45 + 1e-12, Lng: 45}
			d := geo.DistanceKm(a, b)
			So(math.IsNaN(d), ShouldBeFalse)
			So(d, ShouldBeGreaterThanOrEqualTo, 0)
			So(d, ShouldBeLessThan, 1e-6)
		})

		Convey("When comparing both argument orders on random points", func() {
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 500; i++ {
				a, b := randomPoint(rng), randomPoint(rng)
				So(geo.DistanceKm(a, b), ShouldAlmostEqual, geo.DistanceKm(b, a), 1e-9)
				So(geo.DistanceKm(a, b), ShouldBeGreaterThanOrEqualTo, 0)
			}
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given coordinate normalization", t, func() {
		So(geo.NormalizeLng(190), ShouldAlmostEqual, -170, 1e-9)
		So(geo.NormalizeLng(-190), ShouldAlmostEqual, 170, 1e-9)
		So(geo.NormalizeLng(180), ShouldEqual, 180)
		So(geo.NormalizeLng(12.5), ShouldEqual, 12.5)
		So(geo.ClampLat(90.2), ShouldEqual, 90)
		So(geo.ClampLat(-91), ShouldEqual, -90)
	})
}
