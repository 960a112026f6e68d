package endpoints

import (
	"net/http"
	"time"

	"github.com/EasterCompany/pulse-service/health"
	"github.com/EasterCompany/pulse-service/system"
	"github.com/EasterCompany/pulse-service/utils"
)

// handleStatus returns detailed service status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var components []health.ComponentStatus
	if s.Health != nil {
		components = s.Health.CheckAll(r.Context())
	}
	state := "operational"
	if !health.Healthy(components) {
		state = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":    "pulse-service",
		"status":     state,
		"version":    utils.GetVersion(),
		"uptime":     utils.Uptime().Round(time.Second).String(),
		"timestamp":  time.Now().Format(time.RFC3339),
		"workspaces": s.Registry.Workspaces(),
		"components": components,
		"system":     system.Snapshot(),
		"metrics":    s.Metrics.GetMetrics(),
	})
}

// handleHealth is the cheap liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
