package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/fingerprint-core/internal/capture"
)

// WriteCaptureMetric records one stored capture as a telemetry point.
//
// The point carries capture metadata only: the reader serial as a tag
// plus the record id, payload sizes and dimensions as fields. Biometric
// payloads are never written to the time-series store.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteCaptureMetric(rec *capture.Record) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"fingerprint_captures",
		map[string]string{
			"device_serial": rec.DeviceSerial,
		},
		map[string]interface{}{
			"capture_id":     rec.ID,
			"image_width":    rec.ImageWidth,
			"image_height":   rec.ImageHeight,
			"image_bytes":    len(rec.ImageBase64),
			"template_bytes": len(rec.TemplateBase64),
		},
		rec.CapturedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceStatus records a reader's connection state transition.
//
// Parameters:
//   - serial: Reader hardware serial
//   - connected: Whether the reader is currently connected
func (c *Client) WriteDeviceStatus(serial string, connected bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"fingerprint_device_status",
		map[string]string{
			"device_serial": serial,
		},
		map[string]interface{}{
			"connected": connected,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
