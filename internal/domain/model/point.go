// Package model contains domain models passed between layers.
package model

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// ScoredPoint is a catalog entry. IsHotspot is decided once when the
// catalog is built and never changes for the lifetime of that catalog.
type ScoredPoint struct {
	Point
	RiskScore float64
	IsHotspot bool
}

// Source tells where a hotspot result came from.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceGenerated Source = "generated"
)

// HotspotResult is a hotspot annotated with its distance to one query
// center. It is only meaningful for the query that produced it.
type HotspotResult struct {
	Point
	RiskScore  float64
	DistanceKm float64
	Source     Source
}
