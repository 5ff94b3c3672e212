// Package geo holds the great-circle math shared by the hotspot components.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/okian/hotspot/internal/domain/model"
)

// EarthRadiusKm is the Earth mean radius.
const EarthRadiusKm = 6371.0

// KmPerDegreeLat is the flat-earth length of one degree of latitude.
const KmPerDegreeLat = 111.0

// DistanceKm returns the great-circle distance between a and b.
// s2 computes the haversine with the inverse step clamped, so antipodal and
// near-identical inputs never produce NaN.
func DistanceKm(a, b model.Point) float64 {
	if a == b {
		return 0
	}
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * EarthRadiusKm
}

// NormalizeLng wraps a longitude into [-180, 180].
func NormalizeLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// ClampLat limits a latitude to [-90, 90].
func ClampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}
