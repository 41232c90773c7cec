package device

import "strings"

// DeviceType is the closed set of sensor models.
type DeviceType string //nolint:revive // device.DeviceType reads better than device.Type at call sites

// Device types.
const (
	// DeviceTypeTMD measures temperature and humidity.
	DeviceTypeTMD DeviceType = "TMD"
	// DeviceTypeOMD adds an odour sensor.
	DeviceTypeOMD DeviceType = "OMD"
	// DeviceTypeAQIMD adds an air quality index sensor.
	DeviceTypeAQIMD DeviceType = "AQIMD"
	// DeviceTypeGLMD adds a gas leak sensor.
	DeviceTypeGLMD DeviceType = "GLMD"
)

// AllDeviceTypes returns every device type in display order.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{DeviceTypeOMD, DeviceTypeTMD, DeviceTypeAQIMD, DeviceTypeGLMD}
}

// IsValid reports whether t is a known device type.
func (t DeviceType) IsValid() bool {
	_, ok := schemas[t]
	return ok
}

// Metric names a measured quantity. The value doubles as the state key
// and the telemetry key for that measurement.
type Metric string

// Metrics.
const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricOdour       Metric = "odour"
	MetricAQI         Metric = "AQI"
	MetricGas         Metric = "gas"
)

// LegacyGasMetric is how older firmware and dashboards spell MetricGas.
const LegacyGasMetric Metric = "gass"

// AllMetrics returns every metric in alert category order.
func AllMetrics() []Metric {
	return []Metric{MetricTemperature, MetricHumidity, MetricOdour, MetricAQI, MetricGas}
}

// IsValid reports whether m is a known metric.
func (m Metric) IsValid() bool {
	switch m {
	case MetricTemperature, MetricHumidity, MetricOdour, MetricAQI, MetricGas:
		return true
	}
	return false
}

// Normalize maps legacy spellings onto the canonical metric name.
func (m Metric) Normalize() Metric {
	n := Metric(strings.TrimSpace(string(m)))
	if n == LegacyGasMetric {
		return MetricGas
	}
	return n
}

// Measurement describes one reading a device type reports and how its
// alert flag is derived.
type Measurement struct {
	// Metric is the measurement key in telemetry and in state.
	Metric Metric

	// Signal is the telemetry key carrying the alert token.
	Signal string

	// Flag is the state key holding the derived boolean.
	Flag string

	// Trigger is the only token that sets Flag. Matching is exact.
	Trigger string
}

// Triggered reports whether token raises this measurement's alert.
func (m Measurement) Triggered(token string) bool {
	return token == m.Trigger
}

var (
	temperatureMeasurement = Measurement{Metric: MetricTemperature, Signal: "temperatureAlert", Flag: "temperatureAlert", Trigger: "HIGH"}
	humidityMeasurement    = Measurement{Metric: MetricHumidity, Signal: "humidityAlert", Flag: "humidityAlert", Trigger: "HIGH"}
	odourMeasurement       = Measurement{Metric: MetricOdour, Signal: "odourAlert", Flag: "odourAlert", Trigger: "DETECTED"}
	aqiMeasurement         = Measurement{Metric: MetricAQI, Signal: "AQIAlert", Flag: "aqiAlert", Trigger: "POOR"}
	gasMeasurement         = Measurement{Metric: MetricGas, Signal: "gassAlert", Flag: "glAlert", Trigger: "LEAK"}
)

// AllMeasurements returns every measurement any device type reports, in
// alert category order.
func AllMeasurements() []Measurement {
	return []Measurement{temperatureMeasurement, humidityMeasurement, odourMeasurement, aqiMeasurement, gasMeasurement}
}

// schemas lists, per type, the measurements it reports in order.
// Every type reports temperature and humidity.
var schemas = map[DeviceType][]Measurement{
	DeviceTypeTMD:   {temperatureMeasurement, humidityMeasurement},
	DeviceTypeOMD:   {temperatureMeasurement, humidityMeasurement, odourMeasurement},
	DeviceTypeAQIMD: {temperatureMeasurement, humidityMeasurement, aqiMeasurement},
	DeviceTypeGLMD:  {temperatureMeasurement, humidityMeasurement, gasMeasurement},
}

// Schema returns the measurements t reports. ok is false for unknown types.
func (t DeviceType) Schema() (measurements []Measurement, ok bool) {
	s, ok := schemas[t]
	if !ok {
		return nil, false
	}
	out := make([]Measurement, len(s))
	copy(out, s)
	return out, true
}

// Metrics returns the metrics in t's schema. Registration requires one
// condition for each.
func (t DeviceType) Metrics() []Metric {
	s := schemas[t]
	out := make([]Metric, len(s))
	for i, m := range s {
		out[i] = m.Metric
	}
	return out
}

// Reports reports whether t's schema includes m.
func (t DeviceType) Reports(m Metric) bool {
	for _, s := range schemas[t] {
		if s.Metric == m {
			return true
		}
	}
	return false
}

// InitialState is the state of a freshly registered device: every alert
// flag in its schema cleared, no measurements yet.
func InitialState(t DeviceType) State {
	var s State
	for _, m := range schemas[t] {
		off := false
		switch m.Metric {
		case MetricTemperature:
			s.TemperatureAlert = &off
		case MetricHumidity:
			s.HumidityAlert = &off
		case MetricOdour:
			s.OdourAlert = &off
		case MetricAQI:
			s.AQIAlert = &off
		case MetricGas:
			s.GLAlert = &off
		}
	}
	return s
}
