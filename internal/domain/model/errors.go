package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate is the kind for out-of-range coordinates and
// non-positive radii. Inputs are rejected with it before any computation.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// CoordinateError reports which input was rejected.
type CoordinateError struct {
	Field string
	Value float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s: %s out of range (%v)", ErrInvalidCoordinate, e.Field, e.Value)
}

func (e *CoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// ValidatePoint checks latitude in [-90, 90] and longitude in [-180, 180].
func ValidatePoint(p Point) error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &CoordinateError{Field: "lat", Value: p.Lat}
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return &CoordinateError{Field: "lng", Value: p.Lng}
	}
	return nil
}

// ValidateQuery checks a query center and a strictly positive, finite radius.
func ValidateQuery(center Point, radiusKm float64) error {
	if err := ValidatePoint(center); err != nil {
		return err
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return &CoordinateError{Field: "radius_km", Value: radiusKm}
	}
	return nil
}
