package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

// readQuery decodes and validates a {lat, lng, radius_km?} body. On failure
// it writes the error response and returns false.
func readQuery(w http.ResponseWriter, r *http.Request, op string, lim limits) (model.Point, float64, bool) {
	var req types.QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.Point{}, 0, false
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", WrapKind(op, ErrInvalidCoordinate, errors.New("lat and lng are required")))
		return model.Point{}, 0, false
	}

	center := model.Point{Lat: *req.Lat, Lng: *req.Lng}
	radius := lim.defaultRadiusKm
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}

	if err := model.ValidateQuery(center, radius); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", WrapKind(op, ErrInvalidCoordinate, err))
		return model.Point{}, 0, false
	}
	if radius > lim.maxRadiusKm {
		writeError(w, http.StatusBadRequest, "radius_exceeded",
			WrapKind(op, ErrRadiusExceeded, fmt.Errorf("radius_km %v above maximum %v", radius, lim.maxRadiusKm)))
		return model.Point{}, 0, false
	}
	return center, radius, true
}

// writeServiceError maps service errors to responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, model.ErrInvalidCoordinate) {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", WrapKind(op, ErrInvalidCoordinate, err))
		return
	}
	if errors.Is(err, service.ErrInvalidContact) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if errors.Is(err, service.ErrNotStarted) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
