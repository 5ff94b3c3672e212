package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

// ObserverDependencies defines the interface for observer registration.
type ObserverDependencies interface {
	RegisterObserver(ctx context.Context, o model.Observer) (bool, error)
}

// ObserverHandler handles observer registration.
type ObserverHandler struct {
	deps ObserverDependencies
}

// NewObserverHandler creates a new observer handler.
func NewObserverHandler(deps ObserverDependencies) *ObserverHandler {
	return &ObserverHandler{deps: deps}
}

// HandleRegister handles POST /observers requests. Registering an existing
// phone number replaces its location.
func (h *ObserverHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_observer"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.ObserverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing phone_number")))
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(w, http.StatusBadRequest, "invalid_coordinate", WrapKind(op, ErrInvalidCoordinate, errors.New("lat and lng must be given together")))
		return
	}

	o := model.Observer{ID: phone}
	var loc *types.Location
	if req.Lat != nil {
		o.Location = &model.Point{Lat: *req.Lat, Lng: *req.Lng}
		loc = &types.Location{Lat: *req.Lat, Lng: *req.Lng}
	}

	created, err := h.deps.RegisterObserver(r.Context(), o)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	status, msg := http.StatusOK, "Observer updated"
	if created {
		status, msg = http.StatusCreated, "Observer registered"
	}
	writeJSON(w, status, types.ObserverResponse{
		Success:     true,
		PhoneNumber: phone,
		Location:    loc,
		Message:     msg,
	})
}
