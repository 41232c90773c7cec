package device

import (
	"slices"
	"time"
)

// Device is a registered sensor and its last known state.
//
// State is embedded so the measurements and alert flags serialise at the
// top level of the device document, next to its identity.
type Device struct {
	// ID is the internal identifier assigned on registration.
	ID string `json:"id"`

	// DeviceID is the identifier the device itself reports in telemetry.
	DeviceID   string      `json:"deviceId" validate:"required,max=128"`
	DeviceType DeviceType  `json:"deviceType" validate:"required"`
	VenueID    string      `json:"venueId" validate:"required,max=128"`
	Conditions []Condition `json:"conditions" validate:"required,min=1,dive"`

	// APIKey is derived from DeviceID and Conditions, see GenerateAPIKey.
	APIKey string `json:"apiKey"`

	State

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeepCopy returns a copy that shares no mutable memory with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.Conditions = cloneConditions(d.Conditions)
	cpy.State = d.State.clone()
	return &cpy
}

// Registration is the read-only view of a device used on the ingestion
// path: enough to pick a schema and attribute the update.
type Registration struct {
	ID         string
	DeviceID   string
	DeviceType DeviceType
	VenueID    string
	Conditions []Condition
}

func (d *Device) registration() Registration {
	return Registration{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		DeviceType: d.DeviceType,
		VenueID:    d.VenueID,
		Conditions: cloneConditions(d.Conditions),
	}
}

// Condition is a threshold rule evaluated on the device itself.
// The server only validates it and folds it into the API key.
type Condition struct {
	Type     Metric   `json:"type" validate:"required"`
	Operator string   `json:"operator" validate:"required,oneof=> <"`
	Value    *float64 `json:"value" validate:"required"`
}

// Condition operators.
const (
	OperatorGreater = ">"
	OperatorLess    = "<"
)

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		out[i] = c
		if c.Value != nil {
			v := *c.Value
			out[i].Value = &v
		}
	}
	return out
}

func conditionsEqual(a, b []Condition) bool {
	return slices.EqualFunc(a, b, func(x, y Condition) bool {
		if x.Type != y.Type || x.Operator != y.Operator {
			return false
		}
		if x.Value == nil || y.Value == nil {
			return x.Value == y.Value
		}
		return *x.Value == *y.Value
	})
}

// State is the stored telemetry document of a device.
// Nil fields have never been reported, or are outside the device's schema.
type State struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Odour       *float64 `json:"odour,omitempty"`
	AQI         *float64 `json:"AQI,omitempty"`
	Gas         *float64 `json:"gas,omitempty"`

	TemperatureAlert *bool `json:"temperatureAlert,omitempty"`
	HumidityAlert    *bool `json:"humidityAlert,omitempty"`
	OdourAlert       *bool `json:"odourAlert,omitempty"`
	AQIAlert         *bool `json:"aqiAlert,omitempty"`
	GLAlert          *bool `json:"glAlert,omitempty"`

	LastUpdateTime *time.Time `json:"lastUpdateTime,omitempty"`
}

// Value returns the last reported measurement for m.
func (s State) Value(m Metric) *float64 {
	switch m {
	case MetricTemperature:
		return s.Temperature
	case MetricHumidity:
		return s.Humidity
	case MetricOdour:
		return s.Odour
	case MetricAQI:
		return s.AQI
	case MetricGas:
		return s.Gas
	}
	return nil
}

// Alerting reports whether the alert flag for m is set.
// An absent flag is not alerting.
func (s State) Alerting(m Metric) bool {
	var flag *bool
	switch m {
	case MetricTemperature:
		flag = s.TemperatureAlert
	case MetricHumidity:
		flag = s.HumidityAlert
	case MetricOdour:
		flag = s.OdourAlert
	case MetricAQI:
		flag = s.AQIAlert
	case MetricGas:
		flag = s.GLAlert
	}
	return flag != nil && *flag
}

// AnyAlerting reports whether at least one alert flag is set.
func (s State) AnyAlerting() bool {
	for _, m := range AllMetrics() {
		if s.Alerting(m) {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	cpy := s
	cpy.Temperature = clonePtr(s.Temperature)
	cpy.Humidity = clonePtr(s.Humidity)
	cpy.Odour = clonePtr(s.Odour)
	cpy.AQI = clonePtr(s.AQI)
	cpy.Gas = clonePtr(s.Gas)
	cpy.TemperatureAlert = clonePtr(s.TemperatureAlert)
	cpy.HumidityAlert = clonePtr(s.HumidityAlert)
	cpy.OdourAlert = clonePtr(s.OdourAlert)
	cpy.AQIAlert = clonePtr(s.AQIAlert)
	cpy.GLAlert = clonePtr(s.GLAlert)
	cpy.LastUpdateTime = clonePtr(s.LastUpdateTime)
	return cpy
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Patch is a sparse set of state keys merged into the stored document.
// Keys not present are left untouched.
type Patch map[string]any

// FieldLastUpdateTime is the state key stamped on every accepted update.
const FieldLastUpdateTime = "lastUpdateTime"
