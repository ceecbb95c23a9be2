package sse

import (
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/response"
)

// ServerSentEventHandler serves the read-only event stream. An SSE client
// picks its dashboard mode once, in the query string.
type ServerSentEventHandler struct {
	hub        *hub.Hub
	clock      clockwork.Clock
	sendBuffer int
	logger     logger.Logger
}

func NewServerSentEventHandler(hubInstance *hub.Hub, clock clockwork.Clock, sendBuffer int, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:        hubInstance,
		clock:      clock,
		sendBuffer: sendBuffer,
		logger:     logger.WithField("handler", "sse"),
	}
}

// Connect handles SSE connection requests
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	raw := c.DefaultQuery("mode", string(dashboard.DefaultMode))
	mode, err := dashboard.ParseMode(raw)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid mode %q", raw), nil)
		return
	}

	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		response.Fail(c, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
		return
	}

	conn := hub.NewSSEConnection(c.Request.Context(), generateConnectionID(), h.logger, h.sendBuffer)

	if err := h.hub.RegisterConnection(conn); err != nil {
		h.logger.Errorf("Failed to register connection: %v", err)
		_ = conn.Close()
		response.Fail(c, http.StatusInternalServerError, "Failed to register connection", nil)
		return
	}

	if err := h.hub.Subscribe(c.Request.Context(), conn.ID(), mode.Topic()); err != nil {
		h.logger.Errorf("Failed to subscribe %s to %s: %v", conn.ID(), mode.Topic(), err)
		_ = conn.Close()
		response.Fail(c, http.StatusInternalServerError, "Failed to subscribe connection", nil)
		return
	}

	h.logger.Infof("SSE connection %s connected to %s", conn.ID(), mode.Topic())

	if err := h.hub.SendToConnection(c.Request.Context(), conn.ID(), h.connectionStatus()); err != nil {
		h.logger.Warnf("Failed to greet %s: %v", conn.ID(), err)
	}

	hub.SetupHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	if err := conn.Serve(c.Writer); err != nil {
		h.logger.Warnf("SSE stream %s ended: %v", conn.ID(), err)
		return
	}
	h.logger.Infof("SSE connection %s disconnected", conn.ID())
}

// GetConnections returns information about connected SSE clients.
func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	infos := h.hub.ConnectionInfos(hub.ConnectionTypeSSE)
	response.OK(c, http.StatusOK, infos, gin.H{
		"total_connections": len(infos),
		"hub_running":       h.hub.IsRunning(),
	})
}

func (h *ServerSentEventHandler) connectionStatus() *hub.Message {
	now := h.clock.Now()
	return dispatch.ToMessage(event.MustNew(uuid.NewString(), event.NameConnectionStatus, now, event.ConnectionStatus{
		Status:    "connected",
		Timestamp: now,
		Services: map[string]string{
			"ai":         "active",
			"automation": "running",
			"whatsapp":   "connected",
		},
	}))
}

// generateConnectionID generates a unique connection ID
func generateConnectionID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("sse-%x", b)
}
