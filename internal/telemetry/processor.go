package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// Outcome is the result of handling one frame.
type Outcome int

// Frame outcomes.
const (
	// OutcomeApplied means the update was written.
	OutcomeApplied Outcome = iota
	// OutcomeMalformed means the frame could not be decoded.
	OutcomeMalformed
	// OutcomeUnknownDevice means no device has the reported deviceId.
	OutcomeUnknownDevice
	// OutcomeUnsupportedType means the device has no usable type.
	OutcomeUnsupportedType
	// OutcomeNotFound means the device was deleted before the write.
	OutcomeNotFound
	// OutcomeFailed means the lookup or the write failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnknownDevice:
		return "unknown_device"
	case OutcomeUnsupportedType:
		return "unsupported_type"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeviceLookup resolves a reported deviceId to its registration.
// device.Registry implements it.
type DeviceLookup interface {
	Lookup(ctx context.Context, deviceID string) (device.Registration, error)
}

// Processor handles a single telemetry frame end to end.
type Processor struct {
	devices DeviceLookup
	applier *Applier
	loc     *time.Location
	now     func() time.Time
	logger  Logger
}

// NewProcessor creates a Processor. lastUpdateTime is stamped in loc;
// a nil loc means UTC.
func NewProcessor(devices DeviceLookup, applier *Applier, loc *time.Location) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{
		devices: devices,
		applier: applier,
		loc:     loc,
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the processor.
func (p *Processor) SetLogger(logger Logger) {
	p.logger = logger
}

// Handle decodes, maps and applies one frame received from source.
// Every failure is logged here; callers only need the outcome.
func (p *Processor) Handle(ctx context.Context, frame []byte, source string) Outcome {
	env, err := Decode(frame)
	if err != nil {
		p.logger.Warn("dropping telemetry frame", "source", source, "error", err, "size", len(frame))
		return OutcomeMalformed
	}

	reg, err := p.devices.Lookup(ctx, env.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			p.logger.Warn("telemetry from unknown device", "source", source, "device_id", env.DeviceID)
			return OutcomeUnknownDevice
		}
		p.logger.Error("device lookup failed", "source", source, "device_id", env.DeviceID, "error", err)
		return OutcomeFailed
	}

	update, ok := Map(env, reg.DeviceType, p.now().In(p.loc))
	if !ok {
		p.logger.Warn("telemetry for device without a known type",
			"source", source,
			"device_id", env.DeviceID,
			"device_type", reg.DeviceType,
		)
		return OutcomeUnsupportedType
	}
	update.VenueID = reg.VenueID
	update.Source = source

	if err := p.applier.Apply(ctx, update); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			p.logger.Warn("device removed before update", "source", source, "device_id", env.DeviceID)
			return OutcomeNotFound
		}
		p.logger.Error("applying telemetry failed", "source", source, "device_id", env.DeviceID, "error", err)
		return OutcomeFailed
	}

	p.logger.Debug("telemetry applied",
		"source", source,
		"device_id", update.DeviceID,
		"device_type", update.DeviceType,
		"readings", len(update.Readings),
	)
	return OutcomeApplied
}
