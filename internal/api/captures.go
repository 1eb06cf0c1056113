package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/fingerprint-core/internal/capture"
)

// defaultHistoryLimit is the number of records returned when no limit
// query parameter is supplied.
const defaultHistoryLimit = 10

// handleCapture performs one capture-and-store cycle.
//
// GET /fingerprint/capture
//
// Responses:
//   - 200 with the stored record on success
//   - 408 when no sample was presented within the capture window
//   - 503 when the device subsystem is unavailable
//   - 500 on encode or persistence failure
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if s.captures == nil {
		writeServiceUnavailable(w, "fingerprint device not available")
		return
	}

	rec, err := s.captures.CaptureAndStore(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleLatest returns the most recent capture.
//
// GET /fingerprint/latest
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Latest(r.Context())
	if err != nil {
		if errors.Is(err, capture.ErrNoCaptures) {
			writeNotFound(w, "no captures recorded")
			return
		}
		s.logger.Error("reading latest capture failed", "error", err)
		writeInternalError(w, "reading latest capture failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleHistory returns recent captures, newest first.
//
// GET /fingerprint/history?limit=N (default 10)
//
// A limit of zero yields an empty list, not an error.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	records, err := s.store.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading capture history failed", "error", err)
		writeInternalError(w, "reading capture history failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(records),
		"captures": records,
	})
}

// handleStats summarises the capture history.
//
// GET /fingerprint/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("reading capture stats failed", "error", err)
		writeInternalError(w, "reading capture stats failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
