package mqtt

import "strings"

// Topic layout. Devices publish on TelemetryFilter's levels, Core
// publishes state and its own liveness.
const (
	TopicPrefix = "venuewatch"

	// TelemetryFilter matches every device telemetry topic,
	// venuewatch/telemetry/{deviceId}.
	TelemetryFilter = telemetryPrefix + "+"

	// StatusTopic carries Core's retained online/offline status and LWT.
	StatusTopic = TopicPrefix + "/system/status"

	telemetryPrefix = TopicPrefix + "/telemetry/"
	statePrefix     = TopicPrefix + "/device/"
	stateSuffix     = "/state"
)

// StateTopic returns venuewatch/device/{deviceId}/state. A deviceId that
// is empty or holds a topic separator or wildcard cannot name a single
// topic level and returns ErrInvalidTopic.
func StateTopic(deviceID string) (string, error) {
	if !isTopicLevel(deviceID) {
		return "", ErrInvalidTopic
	}
	return statePrefix + deviceID + stateSuffix, nil
}

// DeviceFromTelemetryTopic returns the deviceId level of a telemetry
// topic. ok is false for any other topic.
func DeviceFromTelemetryTopic(topic string) (deviceID string, ok bool) {
	id, found := strings.CutPrefix(topic, telemetryPrefix)
	if !found || !isTopicLevel(id) {
		return "", false
	}
	return id, true
}

func isTopicLevel(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#")
}
