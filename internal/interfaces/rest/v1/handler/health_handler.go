package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/infrastructure/relay"
)

// StatusReporter is anything that can describe its own availability.
type StatusReporter interface {
	Status() string
}

// RunningReporter reports whether a background component is up.
type RunningReporter interface {
	IsRunning() bool
}

type HealthHandler struct {
	clock       clockwork.Clock
	startedAt   time.Time
	environment string
	hub         RunningReporter
	relay       StatusReporter
}

// NewHealthHandler reports relay as disabled when r is nil.
func NewHealthHandler(clock clockwork.Clock, environment string, h RunningReporter, r StatusReporter) *HealthHandler {
	return &HealthHandler{
		clock:       clock,
		startedAt:   clock.Now(),
		environment: environment,
		hub:         h,
		relay:       r,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	now := h.clock.Now()

	relayStatus := relay.StatusDisabled
	if h.relay != nil {
		relayStatus = h.relay.Status()
	}
	hubStatus := "stopped"
	if h.hub.IsRunning() {
		hubStatus = "running"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   now,
		"uptime":      now.Sub(h.startedAt).Seconds(),
		"version":     runtime.Version(),
		"environment": h.environment,
		"services": gin.H{
			"hub":        hubStatus,
			"relay":      relayStatus,
			"ai":         "operational",
			"automation": "active",
		},
	})
}
