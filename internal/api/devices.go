package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/venuewatch-core/internal/audit"
	"github.com/nerrad567/venuewatch-core/internal/device"
)

// Device route messages shown to operators.
const (
	msgDeviceCreated  = "Device created successfully"
	msgDeviceUpdated  = "Device updated successfully"
	msgDeviceRekeyed  = "New API key generated! Please reconfigure your device."
	msgDeviceDeleted  = "Device deleted successfully"
	msgDeviceNotFound = "Device not found"
	msgDeviceExists   = "Device ID already exists"
	msgVenueNotFound  = "Venue not found"
	msgNoVenueDevices = "No devices found for this venue"
)

// createDeviceRequest is the body of POST /devices. Server-assigned
// fields (id, apiKey, state) are not accepted.
type createDeviceRequest struct {
	DeviceID   string             `json:"deviceId"`
	VenueID    string             `json:"venueId"`
	DeviceType device.DeviceType  `json:"deviceType"`
	Conditions []device.Condition `json:"conditions"`
}

// updateDeviceRequest is the body of PUT /devices/{id}.
type updateDeviceRequest struct {
	device.Changes
	DeviceType *device.DeviceType `json:"deviceType"`
}

// handleListDevices returns all devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleListVenueDevices returns the devices of a venue. An empty venue
// is reported as not found.
func (s *Server) handleListVenueDevices(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")

	devices, err := s.registry.ListDevicesByVenue(r.Context(), venueID)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	if len(devices) == 0 {
		writeNotFound(w, msgNoVenueDevices)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// handleGetDevice returns a single device by internal ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, msgDeviceNotFound)
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev := &device.Device{
		DeviceID:   req.DeviceID,
		VenueID:    req.VenueID,
		DeviceType: req.DeviceType,
		Conditions: req.Conditions,
	}
	if err := s.registry.CreateDevice(r.Context(), dev); err != nil {
		s.writeDeviceError(w, err, msgDeviceExists)
		return
	}

	s.recordAudit(r, audit.ActionCreate, dev.ID, map[string]any{
		"deviceId":   dev.DeviceID,
		"deviceType": dev.DeviceType,
		"venueId":    dev.VenueID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msgDeviceCreated,
		"device":  dev,
	})
}

// handleUpdateDevice changes a device's identifier, venue or conditions.
// The message tells the operator whether the device must be reconfigured
// with a new API key.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.DeviceType != nil {
		current, err := s.registry.GetDevice(ctx, id)
		if err != nil {
			s.writeDeviceError(w, err, msgDeviceExists)
			return
		}
		if *req.DeviceType != current.DeviceType {
			writeValidationError(w, "deviceType cannot be changed")
			return
		}
	}

	updated, keyChanged, err := s.registry.UpdateDevice(ctx, id, req.Changes)
	if err != nil {
		exists := msgDeviceExists
		if req.DeviceID != nil {
			exists = fmt.Sprintf("Device ID %q already exists", *req.DeviceID)
		}
		s.writeDeviceError(w, err, exists)
		return
	}

	message, action := msgDeviceUpdated, audit.ActionUpdate
	if keyChanged {
		message, action = msgDeviceRekeyed, audit.ActionRekey
	}
	s.recordAudit(r, action, updated.ID, map[string]any{
		"deviceId": updated.DeviceID,
		"venueId":  updated.VenueID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"device":  updated,
	})
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		s.writeDeviceError(w, err, msgDeviceExists)
		return
	}
	s.recordAudit(r, audit.ActionDelete, id, nil)
	writeJSON(w, http.StatusOK, map[string]any{"message": msgDeviceDeleted})
}

// handleGetDeviceHistory returns the most recent applied telemetry updates
// of a device, newest first.
//
// Query parameters:
//   - limit: number of entries, 1 to 200 (default 50)
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if s.history == nil {
		writeNotFound(w, "telemetry history is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	dev, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		s.writeDeviceError(w, err, msgDeviceExists)
		return
	}

	entries, err := s.history.Recent(ctx, dev.DeviceID, limit)
	if err != nil {
		writeInternalError(w, "failed to get telemetry history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId": dev.DeviceID,
		"history":  entries,
		"count":    len(entries),
	})
}

// writeDeviceError maps registry errors to responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error, existsMessage string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, msgDeviceNotFound)
	case errors.Is(err, device.ErrVenueNotFound):
		writeNotFound(w, msgVenueNotFound)
	case errors.Is(err, device.ErrDeviceExists):
		writeBadRequest(w, existsMessage)
	case errors.Is(err, device.ErrInvalidDeviceType):
		writeValidationError(w, clientMessage(err, device.ErrInvalidDeviceType))
	case errors.Is(err, device.ErrInvalidCondition):
		writeValidationError(w, clientMessage(err, device.ErrInvalidCondition))
	case errors.Is(err, device.ErrInvalidDevice):
		writeValidationError(w, clientMessage(err, device.ErrInvalidDevice))
	default:
		s.logger.Error("device operation failed", "error", err)
		writeInternalError(w, "failed to process device")
	}
}
