package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/device"
)

// HistorySink records every applied update in the telemetry history.
type HistorySink struct {
	repo device.HistoryRepository
}

// NewHistorySink creates a history sink.
func NewHistorySink(repo device.HistoryRepository) *HistorySink {
	return &HistorySink{repo: repo}
}

// Name implements Sink.
func (s *HistorySink) Name() string { return "history" }

// Accept implements Sink.
func (s *HistorySink) Accept(ctx context.Context, u Update) error {
	return s.repo.Record(ctx, u.DeviceID, u.Fields, u.Source)
}

// PointWriter writes one telemetry point to a time-series store.
// influxdb.Client implements it.
type PointWriter interface {
	WriteTelemetry(deviceID, deviceType, venueID string, values map[string]float64, flags map[string]bool, at time.Time) error
}

// PointSink writes measurements and alert flags as time-series points.
type PointSink struct {
	writer PointWriter
}

// NewPointSink creates a time-series sink.
func NewPointSink(writer PointWriter) *PointSink {
	return &PointSink{writer: writer}
}

// Name implements Sink.
func (s *PointSink) Name() string { return "influxdb" }

// Accept implements Sink. Updates without readings are skipped.
func (s *PointSink) Accept(_ context.Context, u Update) error {
	if len(u.Readings) == 0 {
		return nil
	}
	values := make(map[string]float64, len(u.Readings))
	flags := make(map[string]bool, len(u.Readings))
	for _, r := range u.Readings {
		values[string(r.Metric)] = r.Value
		flags[r.Flag] = r.Alerting
	}
	return s.writer.WriteTelemetry(u.DeviceID, string(u.DeviceType), u.VenueID, values, flags, u.At)
}

// StatePublisher publishes a device state message.
// mqtt.Client implements it.
type StatePublisher interface {
	PublishDeviceState(deviceID string, payload []byte) error
}

// StateMessage is the payload published for each applied update.
type StateMessage struct {
	DeviceID   string       `json:"deviceId"`
	DeviceType string       `json:"deviceType"`
	VenueID    string       `json:"venueId,omitempty"`
	Source     string       `json:"source"`
	State      device.Patch `json:"state"`
	Timestamp  time.Time    `json:"timestamp"`
}

// PublishSink publishes each applied update to a message broker.
type PublishSink struct {
	publisher StatePublisher
}

// NewPublishSink creates a publishing sink.
func NewPublishSink(publisher StatePublisher) *PublishSink {
	return &PublishSink{publisher: publisher}
}

// Name implements Sink.
func (s *PublishSink) Name() string { return "mqtt" }

// Accept implements Sink.
func (s *PublishSink) Accept(_ context.Context, u Update) error {
	payload, err := json.Marshal(StateMessage{
		DeviceID:   u.DeviceID,
		DeviceType: string(u.DeviceType),
		VenueID:    u.VenueID,
		Source:     u.Source,
		State:      u.Fields,
		Timestamp:  u.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshalling state message: %w", err)
	}
	return s.publisher.PublishDeviceState(u.DeviceID, payload)
}
