package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/copia/internal/interfaces"
)

// MaterialHandler serves read access to the imported catalog
type MaterialHandler struct {
	catalog interfaces.CatalogStorage
	logger  arbor.ILogger
}

// NewMaterialHandler creates a new material handler
func NewMaterialHandler(catalog interfaces.CatalogStorage, logger arbor.ILogger) *MaterialHandler {
	return &MaterialHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListHandler returns a page of the owner's catalog, name-ordered
// GET /api/materials?limit=50&offset=0
func (h *MaterialHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ownerID, ok := RequireOwner(w, r)
	if !ok {
		return
	}

	limit := QueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := QueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	materials, err := h.catalog.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list materials")
		WriteError(w, http.StatusInternalServerError, "Failed to list materials")
		return
	}

	total, err := h.catalog.CountByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("Failed to count materials")
		total = len(materials)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"materials":   materials,
		"total_count": total,
		"limit":       limit,
		"offset":      offset,
	})
}
