package device

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/fingerprint-core/internal/infrastructure/logging"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	// StateUninitialized is the state before Initialize succeeds.
	StateUninitialized State = iota

	// StateInitialized means the device is open and ready for captures.
	StateInitialized

	// StateClosed means the session has been torn down. A closed session
	// cannot be reopened; construct a new one.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// The vendor runtime supports exactly one open session per process.
// processSlot guards that invariant across Session instances.
var (
	processMu   sync.Mutex
	processSlot bool
)

func claimProcessSlot() bool {
	processMu.Lock()
	defer processMu.Unlock()
	if processSlot {
		return false
	}
	processSlot = true
	return true
}

func releaseProcessSlot() {
	processMu.Lock()
	processSlot = false
	processMu.Unlock()
}

// acquireResult carries the outcome of one blocking vendor acquisition.
type acquireResult struct {
	template []byte
	image    []byte
	code     Code
}

// Session owns one open connection to a physical capture device and
// mediates every operation against it. The hardware link tolerates only
// one in-flight operation, so all methods serialize behind an internal
// mutex; Session is safe for concurrent use by multiple request handlers.
type Session struct {
	mu     sync.Mutex
	sdk    SDK
	logger *logging.Logger

	// captureTimeout bounds each blocking acquisition call.
	captureTimeout time.Duration

	state       State
	device      Handle
	db          Handle
	serial      string
	width       int
	height      int
	deviceCount int

	// inflight holds the result channel of an acquisition that outlived
	// its deadline. The vendor call cannot be interrupted, so the link
	// stays busy until it returns on its own.
	inflight chan acquireResult
}

// NewSession creates a session around the given driver. The session is
// uninitialized; call Initialize before capturing.
func NewSession(sdk SDK, logger *logging.Logger, captureTimeout time.Duration) *Session {
	return &Session{
		sdk:            sdk,
		logger:         logger,
		captureTimeout: captureTimeout,
	}
}

// Status is a point-in-time snapshot of the session for reporting.
type Status struct {
	Connected   bool   `json:"is_connected"`
	DeviceCount int    `json:"device_count"`
	Serial      string `json:"serial_number"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

// Status returns the current device status. Safe to call in any state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Connected:   s.state == StateInitialized,
		DeviceCount: s.deviceCount,
		Serial:      s.serial,
		ImageWidth:  s.width,
		ImageHeight: s.height,
	}
}

// Serial returns the hardware serial of the open device, or "" if the
// session is not initialized.
func (s *Session) Serial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serial
}

// Dimensions returns the native capture width and height in pixels.
func (s *Session) Dimensions() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Initialize opens the vendor runtime, enumerates devices, opens device
// index 0 and prepares it for capture. Calling Initialize on an already
// initialized session is an explicit error, not a no-op; calling it on a
// closed session fails with ErrSessionClosed.
func (s *Session) Initialize(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateClosed:
		return ErrSessionClosed
	}

	if !claimProcessSlot() {
		return ErrSessionActive
	}

	count := s.sdk.Init()
	if count < 0 {
		releaseProcessSlot()
		return CodeError("init", Code(count))
	}
	s.deviceCount = count

	if count == 0 {
		s.sdk.Terminate()
		releaseProcessSlot()
		return CodeError("init", CodeNoDeviceConnected)
	}

	dev, code := s.sdk.OpenDevice(index)
	if !code.Success() {
		s.sdk.Terminate()
		releaseProcessSlot()
		return CodeError("open_device", code)
	}

	serial, code := s.sdk.SerialNumber(dev)
	if !code.Success() {
		s.sdk.CloseDevice(dev)
		s.sdk.Terminate()
		releaseProcessSlot()
		return CodeError("serial_number", code)
	}

	width, height, code := s.sdk.ImageDimensions(dev)
	if !code.Success() {
		s.sdk.CloseDevice(dev)
		s.sdk.Terminate()
		releaseProcessSlot()
		return CodeError("image_dimensions", code)
	}

	db, code := s.sdk.DBInit()
	if !code.Success() {
		s.sdk.CloseDevice(dev)
		s.sdk.Terminate()
		releaseProcessSlot()
		return CodeError("db_init", code)
	}

	s.device = dev
	s.db = db
	s.serial = serial
	s.width = width
	s.height = height
	s.state = StateInitialized

	// Readiness signal. The capture path does not depend on it, so a
	// failed flash is logged and swallowed.
	if code := s.sdk.Light(dev, LightWhite, 0.5); !code.Success() {
		s.logger.Warn("readiness light failed",
			"serial", serial,
			"code", int(code),
		)
	}

	s.logger.Info("device session initialized",
		"serial", serial,
		"device_count", count,
		"image_width", width,
		"image_height", height,
	)

	return nil
}

// Capture performs one blocking acquisition and returns the proprietary
// template and the raw 8-bit grayscale image. A no-finger outcome is
// reported as ErrNoFinger; the configured timeout is enforced at the
// call boundary and reported as ErrCaptureTimeout.
func (s *Session) Capture(ctx context.Context) (template, image []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInitialized(); err != nil {
		return nil, nil, err
	}

	res, err := s.acquire(ctx, "capture", func() acquireResult {
		tmpl, img, code := s.sdk.AcquireTemplate(s.device)
		return acquireResult{template: tmpl, image: img, code: code}
	})
	if err != nil {
		return nil, nil, err
	}
	return res.template, res.image, nil
}

// CaptureImage performs one blocking acquisition of the raw image only,
// without template extraction. Semantics otherwise match Capture.
func (s *Session) CaptureImage(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInitialized(); err != nil {
		return nil, err
	}

	res, err := s.acquire(ctx, "capture_image", func() acquireResult {
		img, code := s.sdk.AcquireImage(s.device)
		return acquireResult{image: img, code: code}
	})
	if err != nil {
		return nil, err
	}
	return res.image, nil
}

// requireInitialized must be called with s.mu held.
func (s *Session) requireInitialized() error {
	switch s.state {
	case StateInitialized:
		return nil
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrNotInitialized
	}
}

// acquire runs one blocking vendor call bounded by the capture timeout.
// Must be called with s.mu held. A timed-out call cannot be interrupted;
// its result channel is parked on the session and drained before the
// next acquisition, which fails fast with a capture-in-progress error
// while the stale call is still running.
func (s *Session) acquire(ctx context.Context, op string, fn func() acquireResult) (acquireResult, error) {
	if s.inflight != nil {
		select {
		case <-s.inflight:
			s.inflight = nil
		default:
			return acquireResult{}, CodeError(op, CodeCaptureInProgress)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.captureTimeout)
	defer cancel()

	ch := make(chan acquireResult, 1)
	go func() {
		ch <- fn()
	}()

	select {
	case res := <-ch:
		if res.code == CodeCaptureImageFailed {
			// Distinguished no-finger sentinel, not a fault.
			return acquireResult{}, ErrNoFinger
		}
		if !res.code.Success() {
			return acquireResult{}, CodeError(op, res.code)
		}
		return res, nil
	case <-ctx.Done():
		s.inflight = ch
		s.logger.Warn("capture deadline exceeded",
			"op", op,
			"serial", s.serial,
			"timeout", s.captureTimeout,
		)
		return acquireResult{}, ErrCaptureTimeout
	}
}

// Light flashes one of the device's indicator lights for the given
// duration in seconds. The colour must already be validated; invalid
// colours are rejected here as a final guard.
func (s *Session) Light(color LightColor, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInitialized(); err != nil {
		return err
	}
	if !color.Valid() {
		return ErrInvalidLightColor
	}

	if code := s.sdk.Light(s.device, color, seconds); !code.Success() {
		return CodeError("light", code)
	}
	return nil
}

// Close tears the session down: releases the template database handle,
// closes the device, terminates the vendor runtime. Each step is best
// effort; one failed release never aborts the others. Close is
// idempotent and always leaves the session in StateClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	wasInitialized := s.state == StateInitialized

	if s.db != 0 {
		if code := s.sdk.DBFree(s.db); !code.Success() {
			s.logger.Warn("releasing template database failed", "code", int(code))
		}
		s.db = 0
	}
	if s.device != 0 {
		if code := s.sdk.CloseDevice(s.device); !code.Success() {
			s.logger.Warn("closing device failed", "serial", s.serial, "code", int(code))
		}
		s.device = 0
	}
	if wasInitialized {
		if code := s.sdk.Terminate(); !code.Success() {
			s.logger.Warn("terminating vendor runtime failed", "code", int(code))
		}
		releaseProcessSlot()
	}

	s.state = StateClosed
	s.serial = ""
	s.width = 0
	s.height = 0
	s.deviceCount = 0

	s.logger.Info("device session closed")
	return nil
}
