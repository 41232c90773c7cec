package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/venuewatch-core/internal/alerts"
)

// handleGetAlerts returns the per-venue alert summary of an organization.
func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "organizationId")

	summary, err := s.alerts.Summarize(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, alerts.ErrNoVenues) {
			writeNotFound(w, "No venues found")
			return
		}
		s.logger.Error("building alert summary", "organization_id", orgID, "error", err)
		writeInternalError(w, "failed to build alert summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
