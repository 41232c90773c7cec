package telemetry

import "errors"

var (
	// ErrMalformedFrame is returned when a frame is not a JSON object.
	ErrMalformedFrame = errors.New("telemetry: malformed frame")

	// ErrMissingDeviceID is returned when a frame has no string deviceId.
	ErrMissingDeviceID = errors.New("telemetry: missing deviceId")
)
