package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(middleware.StripSlashes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/inventory", s.handleInventory)

		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", s.handleListCameras)
			r.Route("/{idx}", func(r chi.Router) {
				r.Get("/", s.handleGetCamera)
				r.Get("/controls", s.handleListControls)
			})
		})
	})

	return r
}

// handleHealth reports liveness. The status is "degraded" while the broker
// is unreachable or no camera is enumerated; the HTTP status stays 200 so
// the endpoint doubles as a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.status.Snapshot()

	status := "ok"
	if !snap.Connected || snap.Cameras == 0 {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"gateway_id":     snap.GatewayID,
		"instance_id":    snap.InstanceID,
		"mqtt_connected": snap.Connected,
		"cameras":        snap.Cameras,
	})
}
