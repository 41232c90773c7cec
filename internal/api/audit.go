package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/venuewatch-core/internal/audit"
)

// recordAudit writes a device audit entry. Failures are logged and do not
// fail the request that made the change.
func (s *Server) recordAudit(r *http.Request, action, entityID string, details map[string]any) {
	if s.audit == nil {
		return
	}

	entry := &audit.Entry{
		Action:     action,
		EntityType: audit.EntityDevice,
		EntityID:   entityID,
		Source:     audit.SourceAPI,
		Details:    details,
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		entry.Actor = claims.Subject
	}

	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// handleListAudit returns device audit entries, newest first.
//
// Query parameters:
//   - action: create, update, rekey or delete
//   - entity_id: internal device id
//   - limit: page size, 1 to 200 (default 50)
//   - offset: entries to skip
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit log is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: audit.EntityDevice,
		EntityID:   q.Get("entity_id"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	page, err := s.audit.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
