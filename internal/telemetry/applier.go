package telemetry

import (
	"context"
	"fmt"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// Logger defines the logging interface used by this package.
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

// StatePatcher merges a sparse patch into a device's stored state in one
// atomic operation. device.SQLiteRepository implements it.
type StatePatcher interface {
	PatchState(ctx context.Context, deviceID string, patch device.Patch) error
}

// Sink consumes updates after they have been applied.
type Sink interface {
	Name() string
	Accept(ctx context.Context, u Update) error
}

// Applier writes updates to the store and fans them out to sinks.
type Applier struct {
	store  StatePatcher
	sinks  []Sink
	logger Logger
}

// NewApplier creates an Applier. Sinks are called in order after every
// successful write.
func NewApplier(store StatePatcher, sinks ...Sink) *Applier {
	return &Applier{
		store:  store,
		sinks:  sinks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the applier.
func (a *Applier) SetLogger(logger Logger) {
	a.logger = logger
}

// Apply merges u into the device's stored state.
//
// Returns device.ErrDeviceNotFound when the device no longer exists. Sink
// failures are logged and never fail the apply.
func (a *Applier) Apply(ctx context.Context, u Update) error {
	if err := a.store.PatchState(ctx, u.DeviceID, u.Fields); err != nil {
		return fmt.Errorf("applying update for %s: %w", u.DeviceID, err)
	}

	for _, s := range a.sinks {
		if err := s.Accept(ctx, u); err != nil {
			a.logger.Warn("telemetry sink failed",
				"sink", s.Name(),
				"device_id", u.DeviceID,
				"error", err,
			)
		}
	}
	return nil
}
