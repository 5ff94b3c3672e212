package api

import (
	"context"
	"net/http"

	service "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/domain/types"
)

// CatalogDependencies defines the interface for catalog maintenance.
type CatalogDependencies interface {
	ReloadCatalog(ctx context.Context) (service.CatalogInfo, error)
}

// CatalogHandler handles catalog reloads.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleReload handles POST /catalog/reload requests.
func (h *CatalogHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload_catalog"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	info, err := h.deps.ReloadCatalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reload_failed", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ReloadResponse{Points: info.Points, Hotspots: info.Hotspots})
}
