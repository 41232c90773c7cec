package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// Envelope is a decoded telemetry frame. It lives for one frame only.
type Envelope struct {
	DeviceID string

	// Values holds the measurements present in the frame.
	Values map[device.Metric]float64

	// Signals holds alert tokens keyed by their telemetry key
	// (temperatureAlert, AQIAlert, gassAlert, ...).
	Signals map[string]string
}

// Value returns the measurement for m and whether the frame carried it.
func (e Envelope) Value(m device.Metric) (float64, bool) {
	v, ok := e.Values[m]
	return v, ok
}

// Decode parses a frame into an Envelope.
//
// The frame must be a JSON object with a string deviceId. Unknown keys
// are ignored. Measurements may be JSON numbers or numeric strings;
// anything else is treated as absent, as are non-string alert tokens.
// The legacy "gass" key is read when "gas" is absent.
func Decode(frame []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if raw == nil {
		return Envelope{}, fmt.Errorf("%w: null payload", ErrMalformedFrame)
	}

	var deviceID string
	if err := json.Unmarshal(raw["deviceId"], &deviceID); err != nil || strings.TrimSpace(deviceID) == "" {
		return Envelope{}, ErrMissingDeviceID
	}

	env := Envelope{
		DeviceID: deviceID,
		Values:   make(map[device.Metric]float64),
		Signals:  make(map[string]string),
	}

	for _, m := range device.AllMeasurements() {
		if v, ok := number(raw[string(m.Metric)]); ok {
			env.Values[m.Metric] = v
		}
		if s, ok := token(raw[m.Signal]); ok {
			env.Signals[m.Signal] = s
		}
	}
	if _, ok := env.Values[device.MetricGas]; !ok {
		if v, ok := number(raw[string(device.LegacyGasMetric)]); ok {
			env.Values[device.MetricGas] = v
		}
	}

	return env, nil
}

// number reads a JSON number or numeric string. NaN and infinities are
// rejected since they cannot be stored in a JSON document.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func token(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
