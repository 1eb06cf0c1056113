package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fingerprint-core/internal/capture"
	"github.com/nerrad567/fingerprint-core/internal/device"
)

// handleDeviceStatus returns the live reader status.
//
// GET /device/status
//
// In degraded mode (no session) the endpoint still answers with a
// disconnected status rather than an error, so monitoring keeps working
// without hardware.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil {
		writeJSON(w, http.StatusOK, device.Status{})
		return
	}
	writeJSON(w, http.StatusOK, s.session.Status())
}

// handleDeviceInfo returns the persisted state for one reader serial.
//
// GET /device/info/{serial}
func (s *Server) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	info, err := s.store.DeviceInfo(r.Context(), serial)
	if err != nil {
		if errors.Is(err, capture.ErrDeviceNotFound) {
			writeNotFound(w, "no device recorded with serial "+serial)
			return
		}
		s.logger.Error("reading device info failed", "serial", serial, "error", err)
		writeInternalError(w, "reading device info failed")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleLight flashes one of the reader's indicator lights.
//
// POST /fingerprint/light/{color}?duration=0.5
//
// The colour is validated before the device is touched: an out-of-set
// value is a 400, not a device error.
func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	color, err := device.ParseLightColor(chi.URLParam(r, "color"))
	if err != nil {
		writeBadRequest(w, "color must be one of: white, green, red")
		return
	}

	duration := s.devCfg.LightDuration
	if raw := r.URL.Query().Get("duration"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil || duration <= 0 {
			writeBadRequest(w, "duration must be a positive number of seconds")
			return
		}
	}

	if s.session == nil {
		writeServiceUnavailable(w, "fingerprint device not available")
		return
	}

	if err := s.session.Light(color, duration); err != nil {
		s.writeDeviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"color":    string(color),
		"duration": duration,
	})
}
