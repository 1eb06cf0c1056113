package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/device", func(r chi.Router) {
		r.Get("/status", s.handleDeviceStatus)
		r.Get("/info/{serial}", s.handleDeviceInfo)
	})

	r.Route("/fingerprint", func(r chi.Router) {
		r.Get("/capture", s.handleCapture)
		r.Get("/latest", s.handleLatest)
		r.Get("/history", s.handleHistory)
		r.Get("/stats", s.handleStats)
		r.Post("/light/{color}", s.handleLight)
	})

	return r
}

// handleRoot returns the service banner.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title":       s.cfg.Title,
		"description": s.cfg.Description,
		"version":     s.cfg.Version,
	})
}

// handleHealth returns liveness plus whether the device subsystem is present.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	deviceReady := false
	if s.session != nil {
		deviceReady = s.session.Status().Connected
	}

	databaseOK := true
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			databaseOK = false
		}
	}

	resp := map[string]any{
		"status":       "ok",
		"version":      s.version,
		"device_ready": deviceReady,
		"database_ok":  databaseOK,
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}

	writeJSON(w, http.StatusOK, resp)
}
