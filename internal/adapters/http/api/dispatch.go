package api

import (
	"context"
	"net/http"

	service "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

// DispatchDependencies defines the interface for alert dispatch.
type DispatchDependencies interface {
	DispatchAlerts(ctx context.Context, center model.Point, radiusKm float64) (service.DispatchResult, error)
}

// DispatchHandler handles alert dispatch requests.
type DispatchHandler struct {
	deps   DispatchDependencies
	limits limits
}

// NewDispatchHandler creates a new dispatch handler.
func NewDispatchHandler(deps DispatchDependencies, lim limits) *DispatchHandler {
	return &DispatchHandler{deps: deps, limits: lim}
}

// HandleDispatch handles POST /alerts/dispatch requests.
func (h *DispatchHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.dispatch_alerts"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	center, radius, ok := readQuery(w, r, op, h.limits)
	if !ok {
		return
	}

	// Undelivered alerts are counted as failed when the deadline passes, so
	// the client still gets a summary before the write deadline.
	ctx, cancel := context.WithTimeout(r.Context(), h.limits.dispatchTimeout)
	defer cancel()

	res, err := h.deps.DispatchAlerts(ctx, center, radius)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.DispatchResponse{
		Success:          true,
		DispatchID:       res.DispatchID,
		AlertsSent:       res.AlertsSent,
		AlertsFailed:     res.AlertsFailed,
		HotspotsDetected: res.HotspotsDetected,
		Message:          res.Message,
	})
}
