package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/mqtt"
)

// Subscriber is the part of the MQTT client the bridge needs.
type Subscriber interface {
	SubscribeTelemetry(qos byte, handler mqtt.TelemetryHandler) error
}

// Bridge feeds telemetry published on venuewatch/telemetry/{deviceId}
// through a FrameHandler. The deviceId inside the payload is
// authoritative; the topic only marks a message as telemetry.
//
// Paho delivers messages for a subscription one at a time, so frames from
// one device keep their publish order.
type Bridge struct {
	sub     Subscriber
	frames  FrameHandler
	qos     byte
	timeout time.Duration
	logger  Logger

	ctx context.Context
}

// NewBridge creates a bridge. timeout bounds the handling of one message.
func NewBridge(sub Subscriber, frames FrameHandler, qos byte, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultApplyTimeout
	}
	return &Bridge{
		sub:     sub,
		frames:  frames,
		qos:     qos,
		timeout: timeout,
		logger:  noopLogger{},
		ctx:     context.Background(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to all device telemetry topics. Messages are handled
// under ctx's values but not its cancellation, so shutdown does not abort
// a message already delivered.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx = context.WithoutCancel(ctx)
	if err := b.sub.SubscribeTelemetry(b.qos, b.handle); err != nil {
		return fmt.Errorf("subscribing to %s: %w", mqtt.TelemetryFilter, err)
	}
	b.logger.Info("mqtt telemetry bridge started", "topic", mqtt.TelemetryFilter)
	return nil
}

// handle processes one frame. topicDevice is only logged; the payload's
// deviceId decides which device is updated.
func (b *Bridge) handle(topicDevice string, payload []byte) {
	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	outcome := b.frames.Handle(ctx, payload, device.HistorySourceMQTT)
	b.logger.Debug("mqtt frame handled", "topic_device", topicDevice, "outcome", outcome.String())
}
