package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
)

// AlertsDependencies defines the interface for reading the alert log.
type AlertsDependencies interface {
	RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error)
}

// AlertsHandler handles alert log requests.
type AlertsHandler struct {
	deps     AlertsDependencies
	maxLimit int
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps AlertsDependencies, maxLimit int) *AlertsHandler {
	return &AlertsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /alerts?limit=N requests.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_alerts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n := min(defaultAlertsLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	recs, err := h.deps.RecentAlerts(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]types.AlertEntry, len(recs))
	for i, rec := range recs {
		out[i] = types.AlertEntry{
			ID:          rec.ID,
			DispatchID:  rec.DispatchID,
			PhoneNumber: rec.ObserverID,
			Message:     rec.Message,
			Location:    types.Location{Lat: rec.Location.Lat, Lng: rec.Location.Lng},
			Receipt:     rec.Receipt,
			SentAt:      rec.SentAt,
		}
	}
	writeJSON(w, http.StatusOK, types.AlertsResponse{Alerts: out})
}
