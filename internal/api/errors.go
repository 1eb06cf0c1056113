package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/fingerprint-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeNoSample    = "no_sample"
	ErrCodeUnavailable = "service_unavailable"
	ErrCodeInternal    = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeServiceUnavailable writes a 503 error response.
func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a device failure onto the HTTP surface.
//
// Transient outcomes (no finger, timeout, capture busy) are retryable
// request-timeout responses, never server faults. Unavailable outcomes
// (no reader, session down) are 503. Everything else is a 500 with the
// raw detail kept in the log, not the response.
func (s *Server) writeDeviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch device.ErrorKind(err) {
	case device.KindTransient:
		msg := "no fingerprint sample presented, try again"
		if errors.Is(err, device.ErrCaptureTimeout) {
			msg = "capture timed out, try again"
		}
		writeError(w, http.StatusRequestTimeout, ErrCodeNoSample, msg)
	case device.KindUnavailable:
		writeServiceUnavailable(w, "fingerprint device not available")
	default:
		s.logger.Error("device operation failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "device operation failed")
	}
}
