package mqtt

import "fmt"

// PublishDeviceState publishes an accepted state update, retained, on
// StateTopic(deviceID) with the configured QoS, so a dashboard that
// subscribes later still sees each device's last state.
func (c *Client) PublishDeviceState(deviceID string, payload []byte) error {
	topic, err := StateTopic(deviceID)
	if err != nil {
		return err
	}
	return c.publish(topic, payload, c.qos, true)
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(c.paho.Publish(topic, qos, retained, payload), operationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
