// Package mqtt is VenueWatch Core's broker link.
//
// It carries three flows:
//   - device telemetry in, on venuewatch/telemetry/{deviceId}
//     (SubscribeTelemetry), fed to the same processor as websocket frames
//   - accepted device state out, retained, on
//     venuewatch/device/{deviceId}/state (PublishDeviceState)
//   - Core's own liveness on venuewatch/system/status: online on every
//     connect, offline on Close, and an offline LWT for crashes
//
// The client reconnects on its own and re-subscribes to telemetry after
// every reconnect. Enable TLS (mqtt.broker.tls) outside local development.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return fmt.Errorf("mqtt connect: %w", err)
//	}
//	defer client.Close()
//
//	err = client.SubscribeTelemetry(1, func(deviceID string, payload []byte) {
//	    processor.Handle(ctx, payload, device.HistorySourceMQTT)
//	})
package mqtt
