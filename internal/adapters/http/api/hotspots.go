package api

import (
	"context"
	"net/http"

	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

// HotspotsDependencies defines the read operations on hotspots.
type HotspotsDependencies interface {
	QueryHotspots(ctx context.Context, center model.Point, radiusKm float64) ([]model.HotspotResult, error)
	ListHotspots(ctx context.Context) []model.ScoredPoint
}

// HotspotsHandler handles hotspot queries and listings.
type HotspotsHandler struct {
	deps   HotspotsDependencies
	limits limits
}

// NewHotspotsHandler creates a new hotspots handler.
func NewHotspotsHandler(deps HotspotsDependencies, lim limits) *HotspotsHandler {
	return &HotspotsHandler{deps: deps, limits: lim}
}

// HandleQuery handles POST /hotspots/query requests.
func (h *HotspotsHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	const op = "api.query_hotspots"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	center, radius, ok := readQuery(w, r, op, h.limits)
	if !ok {
		return
	}

	res, err := h.deps.QueryHotspots(r.Context(), center, radius)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	out := make([]types.Hotspot, len(res))
	for i, hs := range res {
		out[i] = types.Hotspot{
			Lat:        hs.Lat,
			Lng:        hs.Lng,
			RiskScore:  hs.RiskScore,
			DistanceKm: hs.DistanceKm,
			Source:     string(hs.Source),
		}
	}
	writeJSON(w, http.StatusOK, types.QueryResponse{
		Location:      types.Location{Lat: center.Lat, Lng: center.Lng},
		RadiusKm:      radius,
		HotspotsFound: len(out),
		Hotspots:      out,
	})
}

// HandleList handles GET /hotspots requests.
func (h *HotspotsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	list := h.deps.ListHotspots(r.Context())
	out := make([]types.CatalogHotspot, len(list))
	for i, p := range list {
		out[i] = types.CatalogHotspot{Lat: p.Lat, Lng: p.Lng, RiskScore: p.RiskScore}
	}
	writeJSON(w, http.StatusOK, types.HotspotsResponse{Hotspots: out})
}
