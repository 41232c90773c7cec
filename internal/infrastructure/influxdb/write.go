package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// TelemetryMeasurement is the measurement every telemetry point is written to.
const TelemetryMeasurement = "telemetry"

// WriteTelemetry queues one accepted telemetry update as a point.
//
// The point is tagged with device_id and device_type, plus venue_id for
// devices assigned to a venue. Readings become float fields and alert
// flags bool fields, keyed by their state names (temperature,
// temperatureAlert, glAlert). Returns ErrNotConnected after Close.
func (c *Client) WriteTelemetry(deviceID, deviceType, venueID string, values map[string]float64, flags map[string]bool, at time.Time) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writes.WritePoint(telemetryPoint(deviceID, deviceType, venueID, values, flags, at))
	return nil
}

func telemetryPoint(deviceID, deviceType, venueID string, values map[string]float64, flags map[string]bool, at time.Time) *write.Point {
	p := write.NewPointWithMeasurement(TelemetryMeasurement).
		AddTag("device_id", deviceID).
		AddTag("device_type", deviceType).
		SetTime(at)
	if venueID != "" {
		p.AddTag("venue_id", venueID)
	}
	for name, v := range values {
		p.AddField(name, v)
	}
	for name, alerting := range flags {
		p.AddField(name, alerting)
	}
	return p.SortTags().SortFields()
}
