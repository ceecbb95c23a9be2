package websocket

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/interfaces/rest/middleware"
	"go-dashboard-hub/internal/interfaces/rest/response"
)

const replyTimeout = 5 * time.Second

// WhatsAppStatusReader answers whatsapp-status-check frames.
type WhatsAppStatusReader interface {
	WhatsAppStatus() dashboard.WhatsAppAccount
}

type Config struct {
	AllowedOrigins []string
	SendBuffer     int
	// AutoLeavePrevious makes subscribe-dashboard leave the connection's
	// other dashboard topics.
	AutoLeavePrevious bool
}

// WebSocketHandler handles WebSocket connections and messages
type WebSocketHandler struct {
	hub      *hub.Hub
	whatsapp WhatsAppStatusReader
	clock    clockwork.Clock
	logger   logger.Logger
	upgrader websocket.Upgrader
	cfg      Config
}

// NewWebSocketHandler creates a new WebSocket handler instance
func NewWebSocketHandler(
	hubInstance *hub.Hub,
	whatsapp WhatsAppStatusReader,
	clock clockwork.Clock,
	cfg Config,
	logger logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hubInstance,
		whatsapp: whatsapp,
		clock:    clock,
		logger:   logger.WithField("handler", "websocket"),
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.AllowedOrigin(cfg.AllowedOrigins),
		},
	}
}

// Connect upgrades the request, registers the connection and greets it with
// a connection-status frame. Topics are joined later via subscribe frames.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		response.Fail(c, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection(generateWebSocketConnectionID(), conn, h.logger, h.cfg.SendBuffer)

	if err := h.hub.RegisterConnection(wsConn); err != nil {
		h.logger.Errorf("Failed to register WebSocket connection: %v", err)
		_ = wsConn.Close()
		return
	}

	h.logger.Infof("WebSocket connection %s connected and registered", wsConn.ID())

	if err := h.hub.SendToConnection(wsConn.Context(), wsConn.ID(), h.connectionStatus()); err != nil {
		h.logger.Warnf("Failed to greet %s: %v", wsConn.ID(), err)
	}

	wsConn.Listen(h.handleFrame)

	<-wsConn.Context().Done()
	h.logger.Infof("WebSocket connection %s disconnected", wsConn.ID())
}

// GetConnections returns information about WebSocket connections
func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	infos := h.hub.ConnectionInfos(hub.ConnectionTypeWebSocket)
	response.OK(c, http.StatusOK, infos, gin.H{
		"total_connections": len(infos),
		"hub_running":       h.hub.IsRunning(),
	})
}

func (h *WebSocketHandler) connectionStatus() *hub.Message {
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

func (h *WebSocketHandler) reply(conn *hub.WebSocketConnection, message *hub.Message) {
	ctx, cancel := context.WithTimeout(conn.Context(), replyTimeout)
	defer cancel()

	if err := h.hub.SendToConnection(ctx, conn.ID(), message); err != nil {
		h.logger.Debugf("Reply %s to %s dropped: %v", message.Type, conn.ID(), err)
	}
}

// generateWebSocketConnectionID generates a unique WebSocket connection ID
func generateWebSocketConnectionID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("ws-%x", b)
}
