package device

import "errors"

// Domain errors for the device package. Match them with errors.Is.
var (
	// ErrDeviceNotFound is returned when a device does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when a deviceId is already registered.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice wraps a required-field or format problem.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceType is returned for a type outside the closed set.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidCondition is returned for a bad or missing threshold rule.
	ErrInvalidCondition = errors.New("device: invalid condition")

	// ErrVenueNotFound is returned when the referenced venue does not exist.
	ErrVenueNotFound = errors.New("device: venue not found")
)
