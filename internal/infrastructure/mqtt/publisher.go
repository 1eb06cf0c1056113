package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/fingerprint-core/internal/capture"
)

// captureEvent is the wire payload for one stored capture. It carries
// metadata only; image and template payloads stay in the database.
type captureEvent struct {
	CaptureID    int64     `json:"capture_id"`
	DeviceSerial string    `json:"device_serial"`
	ImageWidth   int       `json:"image_width"`
	ImageHeight  int       `json:"image_height"`
	CapturedAt   time.Time `json:"captured_at"`
}

// CapturePublisher announces stored captures on the capture event topic.
// It satisfies the capture service's EventPublisher contract.
type CapturePublisher struct {
	client *Client
	qos    byte
}

// NewCapturePublisher creates a publisher over a connected client.
func NewCapturePublisher(client *Client, qos byte) *CapturePublisher {
	return &CapturePublisher{
		client: client,
		qos:    qos,
	}
}

// PublishCapture publishes one capture event. Events are not retained;
// subscribers that miss one read the history endpoint instead.
func (p *CapturePublisher) PublishCapture(_ context.Context, rec *capture.Record) error {
	payload, err := json.Marshal(captureEvent{
		CaptureID:    rec.ID,
		DeviceSerial: rec.DeviceSerial,
		ImageWidth:   rec.ImageWidth,
		ImageHeight:  rec.ImageHeight,
		CapturedAt:   rec.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding capture event: %w", err)
	}

	return p.client.Publish(Topics{}.CaptureEvent(), payload, p.qos, false)
}
