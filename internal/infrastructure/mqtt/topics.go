package mqtt

// Topic structure for the capture service:
//
//	fingerprint/system/status          - service online/offline (retained)
//	fingerprint/events/capture         - one message per stored capture
//	fingerprint/device/{serial}/status - per-reader connection state (retained)
//
// Event payloads carry metadata only (capture id, serial, dimensions,
// timestamp). Biometric payloads never cross the broker.

// topicPrefix is the root of every topic the service touches.
const topicPrefix = "fingerprint"

// Topics builds the service's MQTT topic strings. It is a namespace
// rather than stateful configuration; use it as Topics{}.CaptureEvent().
type Topics struct{}

// SystemStatus returns the retained service status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// CaptureEvent returns the capture event topic.
func (Topics) CaptureEvent() string {
	return topicPrefix + "/events/capture"
}

// DeviceStatus returns the retained status topic for one reader serial.
func (Topics) DeviceStatus(serial string) string {
	return topicPrefix + "/device/" + serial + "/status"
}
