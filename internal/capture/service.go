package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/fingerprint-core/internal/infrastructure/logging"
)

// DeviceSession is the slice of the device session the capture service
// depends on, abstracted so tests can substitute a fake.
type DeviceSession interface {
	// Capture performs one blocking acquisition returning the template
	// and raw grayscale image.
	Capture(ctx context.Context) (template, image []byte, err error)

	// Serial returns the hardware serial of the open device.
	Serial() string

	// Dimensions returns the native capture width and height in pixels.
	Dimensions() (width, height int)
}

// EventPublisher announces a completed capture to interested consumers.
// Publishing is best effort and never fails the capture.
type EventPublisher interface {
	PublishCapture(ctx context.Context, rec *Record) error
}

// TelemetryWriter records capture metrics. Writes are best effort and
// never fail the capture.
type TelemetryWriter interface {
	WriteCaptureMetric(rec *Record)
}

// Service orchestrates one logical capture-and-persist transaction:
// acquire from the device, encode to transport form, store atomically,
// then fan out notifications.
type Service struct {
	session     DeviceSession
	store       Store
	logger      *logging.Logger
	imageFormat string

	// Optional collaborators; nil disables the concern.
	publisher EventPublisher
	telemetry TelemetryWriter
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPublisher enables capture event publishing.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithTelemetry enables capture telemetry.
func WithTelemetry(w TelemetryWriter) Option {
	return func(s *Service) { s.telemetry = w }
}

// NewService creates a capture service. imageFormat selects the primary
// transport encoding ("png" or "bmp").
func NewService(session DeviceSession, store Store, logger *logging.Logger, imageFormat string, opts ...Option) *Service {
	s := &Service{
		session:     session,
		store:       store,
		logger:      logger,
		imageFormat: imageFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureAndStore performs one capture cycle.
//
// Device sentinel outcomes (no finger, timeout) pass through unchanged
// for the HTTP layer to classify. Encoding or persistence failures leave
// the device session open; the persistence transaction rolls back as a
// unit so a failed cycle writes nothing.
func (s *Service) CaptureAndStore(ctx context.Context) (*Record, error) {
	template, imageRaw, err := s.session.Capture(ctx)
	if err != nil {
		return nil, err
	}

	width, height := s.session.Dimensions()
	capturedAt := time.Now().UTC()

	imageB64, err := EncodeImage(imageRaw, width, height, s.imageFormat)
	if err != nil {
		return nil, fmt.Errorf("encoding capture image: %w", err)
	}

	rec := &Record{
		ImageBase64:    imageB64,
		TemplateBase64: EncodeTemplate(template),
		DeviceSerial:   s.session.Serial(),
		ImageWidth:     width,
		ImageHeight:    height,
		CapturedAt:     capturedAt,
	}

	if err := s.store.StoreCapture(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing capture: %w", err)
	}

	s.logger.Info("capture stored",
		"capture_id", rec.ID,
		"serial", rec.DeviceSerial,
		"image_width", width,
		"image_height", height,
	)

	s.notify(ctx, rec)
	return rec, nil
}

// notify fans a stored capture out to the optional collaborators.
// Failures are logged, never propagated.
func (s *Service) notify(ctx context.Context, rec *Record) {
	if s.publisher != nil {
		if err := s.publisher.PublishCapture(ctx, rec); err != nil {
			s.logger.Warn("publishing capture event failed",
				"capture_id", rec.ID,
				"error", err,
			)
		}
	}
	if s.telemetry != nil {
		s.telemetry.WriteCaptureMetric(rec)
	}
}
