package capture

import "time"

// Record is one stored capture. Records are append-only: a row exists
// only after a successful acquisition, so payloads and dimensions are
// always populated.
type Record struct {
	ID             int64     `json:"id"`
	EnrollmentID   *int64    `json:"enrollment_id,omitempty"`
	Score          *int      `json:"score,omitempty"`
	ImageBase64    string    `json:"image_base64"`
	TemplateBase64 string    `json:"template_base64"`
	DeviceSerial   string    `json:"device_serial"`
	ImageWidth     int       `json:"image_width"`
	ImageHeight    int       `json:"image_height"`
	CapturedAt     time.Time `json:"captured_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeviceInfo is the persisted state of one physical reader, keyed by
// serial and refreshed on every successful capture.
type DeviceInfo struct {
	ID            int64     `json:"id"`
	DeviceSerial  string    `json:"device_serial"`
	DeviceType    string    `json:"device_type,omitempty"`
	LastConnected time.Time `json:"last_connected"`
	ImageWidth    int       `json:"image_width"`
	ImageHeight   int       `json:"image_height"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Stats summarises the capture history.
type Stats struct {
	TotalCaptures int64      `json:"total_captures"`
	DeviceCount   int64      `json:"device_count"`
	LastCapture   *time.Time `json:"last_capture,omitempty"`
}
