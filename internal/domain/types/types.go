// Package types contains the JSON wire types shared by the HTTP API and the
// probe client.
package types

import "time"

// Location is a coordinate on the wire.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// QueryRequest is the body of POST /hotspots/query and POST /alerts/dispatch.
// Pointers distinguish a missing field from zero.
type QueryRequest struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	RadiusKm *float64 `json:"radius_km,omitempty"`
}

// Hotspot is one ranked hotspot in a query response.
type Hotspot struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RiskScore  float64 `json:"risk_score"`
	DistanceKm float64 `json:"distance_km"`
	Source     string  `json:"source"`
}

// QueryResponse is returned by POST /hotspots/query.
type QueryResponse struct {
	Location      Location  `json:"location"`
	RadiusKm      float64   `json:"radius_km"`
	HotspotsFound int       `json:"hotspots_found"`
	Hotspots      []Hotspot `json:"hotspots"`
}

// DispatchResponse is returned by POST /alerts/dispatch.
type DispatchResponse struct {
	Success          bool   `json:"success"`
	DispatchID       string `json:"dispatch_id,omitempty"`
	AlertsSent       int    `json:"alerts_sent"`
	AlertsFailed     int    `json:"alerts_failed"`
	HotspotsDetected int    `json:"hotspots_detected"`
	Message          string `json:"message"`
}

// CatalogHotspot is a flagged catalog point.
type CatalogHotspot struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	RiskScore float64 `json:"risk_score"`
}

// HotspotsResponse is returned by GET /hotspots.
type HotspotsResponse struct {
	Hotspots []CatalogHotspot `json:"hotspots"`
}

// ObserverRequest is the body of POST /observers. Lat and Lng must be
// given together or not at all.
type ObserverRequest struct {
	PhoneNumber string   `json:"phone_number"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// ObserverResponse is returned by POST /observers.
type ObserverResponse struct {
	Success     bool      `json:"success"`
	PhoneNumber string    `json:"phone_number"`
	Location    *Location `json:"location"`
	Message     string    `json:"message"`
}

// AlertEntry is one delivered alert from the alert log.
type AlertEntry struct {
	ID          string    `json:"id"`
	DispatchID  string    `json:"dispatch_id"`
	PhoneNumber string    `json:"phone_number"`
	Message     string    `json:"message"`
	Location    Location  `json:"location"`
	Receipt     string    `json:"receipt"`
	SentAt      time.Time `json:"sent_at"`
}

// AlertsResponse is returned by GET /alerts.
type AlertsResponse struct {
	Alerts []AlertEntry `json:"alerts"`
}

// ReloadResponse is returned by POST /catalog/reload.
type ReloadResponse struct {
	Points   int `json:"points"`
	Hotspots int `json:"hotspots"`
}

// DispatchEvent is pushed to stream clients after every dispatch that
// found hotspots.
type DispatchEvent struct {
	Type             string    `json:"type"`
	DispatchID       string    `json:"dispatch_id"`
	Location         Location  `json:"location"`
	RadiusKm         float64   `json:"radius_km"`
	HotspotsDetected int       `json:"hotspots_detected"`
	AlertsSent       int       `json:"alerts_sent"`
	AlertsFailed     int       `json:"alerts_failed"`
	At               time.Time `json:"at"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
