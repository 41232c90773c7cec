package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// TelemetryHandler receives one frame published on
// venuewatch/telemetry/{deviceId}. It runs on paho's delivery goroutine,
// one message at a time.
type TelemetryHandler func(deviceID string, payload []byte)

type telemetryRoute struct {
	qos     byte
	handler TelemetryHandler
}

// SubscribeTelemetry subscribes to TelemetryFilter and passes every
// device frame to handler. The subscription is restored after a
// reconnect. Calling it again replaces the handler.
func (c *Client) SubscribeTelemetry(qos byte, handler TelemetryHandler) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	route := &telemetryRoute{qos: qos, handler: handler}
	if err := wait(c.paho.Subscribe(TelemetryFilter, qos, c.deliver(route)), operationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.mu.Lock()
	c.telemetry = route
	c.mu.Unlock()

	c.log().Info("subscribed to device telemetry", "topic", TelemetryFilter, "qos", qos)
	return nil
}

// deliver adapts route to paho. Messages outside the telemetry layout are
// dropped, and a panicking handler is recovered so the client's delivery
// goroutine survives.
func (c *Client) deliver(route *telemetryRoute) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("telemetry handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		deviceID, ok := DeviceFromTelemetryTopic(msg.Topic())
		if !ok {
			c.log().Debug("ignoring message outside device telemetry", "topic", msg.Topic())
			return
		}
		route.handler(deviceID, msg.Payload())
	}
}
