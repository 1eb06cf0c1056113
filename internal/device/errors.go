package device

import (
	"errors"
	"fmt"
)

// Sentinel errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNoFinger) {
//	    // ask the caller to try again
//	}
var (
	// ErrNoFinger is returned when no finger was presented during the
	// capture window. It is a normal outcome, not a device fault.
	ErrNoFinger = errors.New("device: no finger detected")

	// ErrCaptureTimeout is returned when a capture did not complete within
	// the configured device timeout.
	ErrCaptureTimeout = errors.New("device: capture timed out")

	// ErrNotInitialized is returned when an operation requires an open
	// session but Initialize has not succeeded.
	ErrNotInitialized = errors.New("device: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called on a
	// session that is already open.
	ErrAlreadyInitialized = errors.New("device: already initialized")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session after Close.
	ErrSessionClosed = errors.New("device: session closed")

	// ErrSessionActive is returned when a second session is opened while
	// another is still active in this process. The vendor runtime supports
	// only one open session at a time.
	ErrSessionActive = errors.New("device: another session is active")

	// ErrInvalidLightColor is returned when a light colour is not one of
	// the supported values.
	ErrInvalidLightColor = errors.New("device: invalid light color")
)

// Code is a vendor SDK return code. Zero and positive values indicate
// success; negative values are failures translated via CodeError.
type Code int

// Success reports whether the code indicates a successful call.
func (c Code) Success() bool { return c >= 0 }

// Vendor return codes. The numbering is fixed by the SDK and must not
// be renumbered.
const (
	CodeOK                      Code = 0
	CodeAlgorithmInitFailed     Code = -1
	CodeCaptureInitFailed       Code = -2
	CodeNoDeviceConnected       Code = -3
	CodeNotSupported            Code = -4
	CodeInvalidParameter        Code = -5
	CodeDeviceStartFailed       Code = -6
	CodeInvalidHandle           Code = -7
	CodeCaptureImageFailed      Code = -8
	CodeExtractTemplateFailed   Code = -9
	CodeAborted                 Code = -10
	CodeInsufficientMemory      Code = -11
	CodeCaptureInProgress       Code = -12
	CodeAddTemplateFailed       Code = -13
	CodeDeleteTemplateFailed    Code = -14
	CodeOperationFailed         Code = -17
	CodeCaptureCancelled        Code = -18
	CodeComparisonFailed        Code = -20
	CodeCombineTemplatesFailed  Code = -22
	CodeDeviceNotStarted        Code = -23
	CodeDeviceNotInitialized    Code = -24
	CodeDeviceAlreadyConnected  Code = -25
)

// Kind classifies a vendor failure for callers that map errors onto an
// HTTP surface.
type Kind int

const (
	// KindHard is an internal device or SDK fault.
	KindHard Kind = iota

	// KindUnavailable means the device subsystem cannot serve requests
	// right now (not connected, not initialized, busy with another link).
	KindUnavailable

	// KindTransient is a retryable condition; the caller should simply
	// try the capture again.
	KindTransient
)

// codeInfo describes one vendor return code.
type codeInfo struct {
	kind    Kind
	message string
}

// codeTable maps every documented vendor code to its classification and
// human-readable message.
var codeTable = map[Code]codeInfo{
	CodeAlgorithmInitFailed:    {KindHard, "failed to initialize algorithm library"},
	CodeCaptureInitFailed:      {KindHard, "failed to initialize capture library"},
	CodeNoDeviceConnected:      {KindUnavailable, "no device connected"},
	CodeNotSupported:           {KindHard, "not supported by current device"},
	CodeInvalidParameter:       {KindHard, "invalid parameter"},
	CodeDeviceStartFailed:      {KindUnavailable, "failed to start device"},
	CodeInvalidHandle:          {KindUnavailable, "invalid handle"},
	CodeCaptureImageFailed:     {KindHard, "failed to capture image"},
	CodeExtractTemplateFailed:  {KindHard, "failed to extract template"},
	CodeAborted:                {KindHard, "operation aborted"},
	CodeInsufficientMemory:     {KindHard, "insufficient memory"},
	CodeCaptureInProgress:      {KindTransient, "fingerprint is being captured"},
	CodeAddTemplateFailed:      {KindHard, "failed to add template"},
	CodeDeleteTemplateFailed:   {KindHard, "failed to delete template"},
	CodeOperationFailed:        {KindHard, "operation failed"},
	CodeCaptureCancelled:       {KindTransient, "capture cancelled"},
	CodeComparisonFailed:       {KindHard, "template comparison failed"},
	CodeCombineTemplatesFailed: {KindHard, "failed to combine templates"},
	CodeDeviceNotStarted:       {KindUnavailable, "device not started"},
	CodeDeviceNotInitialized:   {KindUnavailable, "device not initialized"},
	CodeDeviceAlreadyConnected: {KindUnavailable, "device already connected"},
}

// Error is a typed failure carrying the raw vendor code alongside the
// operation that produced it. Unknown codes are preserved, never dropped.
type Error struct {
	// Op is the device operation that failed, e.g. "capture".
	Op string

	// Code is the raw vendor return code.
	Code Code

	// Kind classifies the failure for HTTP mapping.
	Kind Kind

	// Message is the human-readable description from the vendor table.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("device: %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// CodeError translates a vendor return code into a typed error.
// Success codes return nil. Codes missing from the vendor table produce
// a generic hard failure that still carries the raw code.
func CodeError(op string, code Code) error {
	if code.Success() {
		return nil
	}
	info, ok := codeTable[code]
	if !ok {
		return &Error{
			Op:      op,
			Code:    code,
			Kind:    KindHard,
			Message: "unknown device error",
		}
	}
	return &Error{
		Op:      op,
		Code:    code,
		Kind:    info.kind,
		Message: info.message,
	}
}

// ErrorKind extracts the failure class from an error chain. Sentinel
// errors and unknown errors are classified for HTTP mapping alongside
// typed vendor failures.
func ErrorKind(err error) Kind {
	var devErr *Error
	if errors.As(err, &devErr) {
		return devErr.Kind
	}
	switch {
	case errors.Is(err, ErrNoFinger),
		errors.Is(err, ErrCaptureTimeout):
		return KindTransient
	case errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrSessionActive):
		return KindUnavailable
	default:
		return KindHard
	}
}
