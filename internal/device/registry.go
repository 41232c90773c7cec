package device

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// VenueChecker confirms a venue exists before a device is attached to it.
type VenueChecker interface {
	VenueExists(ctx context.Context, venueID string) (bool, error)
}

// Registry wraps a Repository with registration rules and a lookup cache.
//
// The cache holds only registration data (type, venue, conditions), keyed
// by deviceId, for the ingestion path. Reads that need current state go
// to the repository. All methods are safe for concurrent use.
type Registry struct {
	repo   Repository
	venues VenueChecker
	logger Logger

	mu    sync.RWMutex
	cache map[string]Registration // by deviceId
	gen   uint64                  // bumped by every write to cache
}

// NewRegistry creates a device registry.
func NewRegistry(repo Repository, venues VenueChecker) *Registry {
	return &Registry{
		repo:   repo,
		venues: venues,
		logger: noopLogger{},
		cache:  make(map[string]Registration),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all registrations from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	cache := make(map[string]Registration, len(devices))
	for i := range devices {
		cache[devices[i].DeviceID] = devices[i].registration()
	}

	r.mu.Lock()
	r.cache = cache
	r.gen++
	r.mu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// Lookup resolves a reported deviceId to its registration.
// Returns ErrDeviceNotFound for unknown devices.
//
// A miss is filled from the repository only if no create, update, delete
// or refresh ran while it was read, so a slow read cannot put back a
// registration that has since changed.
func (r *Registry) Lookup(ctx context.Context, deviceID string) (Registration, error) {
	r.mu.RLock()
	reg, ok := r.cache[deviceID]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		reg.Conditions = cloneConditions(reg.Conditions)
		return reg, nil
	}

	d, err := r.repo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return Registration{}, err
	}

	r.mu.Lock()
	if _, cached := r.cache[deviceID]; r.gen == gen && !cached {
		r.cache[deviceID] = d.registration()
	}
	r.mu.Unlock()

	return d.registration(), nil
}

// CachedCount returns the number of cached registrations.
func (r *Registry) CachedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// CreateDevice validates and registers a new device.
//
// On success d carries its assigned id, API key, initial state and
// timestamps.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	NormalizeConditions(d.Conditions)
	if err := Validate(d); err != nil {
		return err
	}

	if _, err := r.repo.GetByDeviceID(ctx, d.DeviceID); err == nil {
		return ErrDeviceExists
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return fmt.Errorf("checking device id: %w", err)
	}

	if err := r.checkVenue(ctx, d.VenueID); err != nil {
		return err
	}

	d.ID = uuid.NewString()
	d.APIKey = GenerateAPIKey(d.DeviceID, d.Conditions)
	d.State = InitialState(d.DeviceType)

	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[d.DeviceID] = d.registration()
	r.gen++
	r.mu.Unlock()

	r.logger.Info("device registered", "id", d.ID, "device_id", d.DeviceID, "type", d.DeviceType, "venue_id", d.VenueID)
	return nil
}

// GetDevice returns a device with its current state.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	return r.repo.GetByID(ctx, id)
}

// ListDevices returns all devices with their current state.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}

// ListDevicesByVenue returns the devices in a venue. An empty result is
// not an error here; callers decide whether it means not found.
func (r *Registry) ListDevicesByVenue(ctx context.Context, venueID string) ([]Device, error) {
	return r.repo.ListByVenue(ctx, venueID)
}

// Changes is a partial update of a device's registration.
// Nil fields are left as they are. The device type cannot change.
type Changes struct {
	DeviceID   *string     `json:"deviceId"`
	VenueID    *string     `json:"venueId"`
	Conditions []Condition `json:"conditions"`
}

// UpdateDevice applies changes to the device with the given internal id.
//
// The API key is recomputed from the new deviceId and conditions;
// keyChanged reports whether it differs from the stored key, in which
// case the physical device has to be reconfigured.
func (r *Registry) UpdateDevice(ctx context.Context, id string, changes Changes) (updated *Device, keyChanged bool, err error) {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	next := current.DeepCopy()
	if changes.DeviceID != nil {
		next.DeviceID = *changes.DeviceID
	}
	if changes.VenueID != nil {
		next.VenueID = *changes.VenueID
	}
	if changes.Conditions != nil {
		next.Conditions = cloneConditions(changes.Conditions)
		NormalizeConditions(next.Conditions)
	}

	if err := Validate(next); err != nil {
		return nil, false, err
	}

	if next.VenueID != current.VenueID {
		if err := r.checkVenue(ctx, next.VenueID); err != nil {
			return nil, false, err
		}
	}

	if next.DeviceID != current.DeviceID || !conditionsEqual(next.Conditions, current.Conditions) {
		next.APIKey = GenerateAPIKey(next.DeviceID, next.Conditions)
	}
	keyChanged = next.APIKey != current.APIKey

	if err := r.repo.Update(ctx, next); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	delete(r.cache, current.DeviceID)
	r.cache[next.DeviceID] = next.registration()
	r.gen++
	r.mu.Unlock()

	r.logger.Info("device updated", "id", id, "device_id", next.DeviceID, "key_changed", keyChanged)
	return next, keyChanged, nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, current.DeviceID)
	r.gen++
	r.mu.Unlock()

	r.logger.Info("device deleted", "id", id, "device_id", current.DeviceID)
	return nil
}

func (r *Registry) checkVenue(ctx context.Context, venueID string) error {
	if r.venues == nil {
		return nil
	}
	ok, err := r.venues.VenueExists(ctx, venueID)
	if err != nil {
		return fmt.Errorf("checking venue: %w", err)
	}
	if !ok {
		return ErrVenueNotFound
	}
	return nil
}
