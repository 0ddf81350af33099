package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/camgate/internal/inventory"
)

const maxEnumerationLimit = 500

// handleInventory returns every camera the gateway has ever enumerated
// together with the most recent enumerations. ?limit= bounds the history.
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil {
		writeUnavailable(w, "inventory is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxEnumerationLimit {
			writeBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	ctx := r.Context()
	cameras, err := s.inventory.ListCameras(ctx)
	if err != nil {
		s.logger.Error("listing inventory cameras failed", "error", err)
		writeInternalError(w, "failed to read inventory")
		return
	}
	enumerations, err := s.inventory.RecentEnumerations(ctx, limit)
	if err != nil {
		s.logger.Error("listing enumerations failed", "error", err)
		writeInternalError(w, "failed to read inventory")
		return
	}

	if cameras == nil {
		cameras = []inventory.Camera{}
	}
	if enumerations == nil {
		enumerations = []inventory.Enumeration{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cameras":      cameras,
		"enumerations": enumerations,
	})
}
