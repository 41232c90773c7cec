package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/venuewatch-core/internal/location"
)

// handleListOrganizations returns all organizations.
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.locations.ListOrganizations(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list organizations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs, "count": len(orgs)})
}

// handleGetOrganization returns a single organization by ID.
func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	org, err := s.locations.GetOrganization(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrOrganizationNotFound) {
			writeNotFound(w, "Organization not found")
			return
		}
		writeInternalError(w, "failed to get organization")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// handleListVenues returns the venues of an organization.
func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.locations.GetOrganization(ctx, id); err != nil {
		if errors.Is(err, location.ErrOrganizationNotFound) {
			writeNotFound(w, "Organization not found")
			return
		}
		writeInternalError(w, "failed to get organization")
		return
	}

	venues, err := s.locations.ListVenuesByOrganization(ctx, id)
	if err != nil {
		writeInternalError(w, "failed to list venues")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": venues, "count": len(venues)})
}

// handleGetVenue returns a single venue by ID.
func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	venue, err := s.locations.GetVenue(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrVenueNotFound) {
			writeNotFound(w, "Venue not found")
			return
		}
		writeInternalError(w, "failed to get venue")
		return
	}
	writeJSON(w, http.StatusOK, venue)
}
