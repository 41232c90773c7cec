package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/venuewatch-core/internal/auth"
)

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// buildRouter creates the chi router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Device ingestion websocket. Devices do not send browser headers or
	// bearer tokens, so it sits outside the API middleware.
	if s.ingest != nil && s.ingestAt != "" {
		r.Handle(s.ingestAt, s.ingest)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		r.Use(s.bodySizeLimitMiddleware)
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}
		if s.cfg.Timeouts.Write > 0 {
			r.Use(middleware.Timeout(time.Duration(s.cfg.Timeouts.Write) * time.Second))
		}

		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermAlertRead)).
				Get("/alerts/{organizationId}", s.handleGetAlerts)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermLocationRead))
				r.Get("/organizations", s.handleListOrganizations)
				r.Get("/organizations/{id}", s.handleGetOrganization)
				r.Get("/organizations/{id}/venues", s.handleListVenues)
				r.Get("/venues/{id}", s.handleGetVenue)
			})

			r.With(s.requirePermission(auth.PermDeviceRead)).
				Get("/venues/{id}/devices", s.handleListVenueDevices)

			r.With(s.requirePermission(auth.PermDeviceManage)).
				Get("/audit", s.handleListAudit)

			r.Route("/devices", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleListDevices)
				r.With(s.requirePermission(auth.PermDeviceManage)).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/history", s.handleGetDeviceHistory)
					r.With(s.requirePermission(auth.PermDeviceManage)).Put("/", s.handleUpdateDevice)
					r.With(s.requirePermission(auth.PermDeviceManage)).Delete("/", s.handleDeleteDevice)
				})
			})
		})
	})

	return r
}
