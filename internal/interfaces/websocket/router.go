package websocket

import (
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

// InitWebSocketRouter initializes WebSocket routes
func InitWebSocketRouter(
	logger logger.Logger,
	hubInstance *hub.Hub,
	whatsapp WhatsAppStatusReader,
	clock clockwork.Clock,
	cfg Config,
	rg *gin.RouterGroup,
) {
	wsHandler := NewWebSocketHandler(hubInstance, whatsapp, clock, cfg, logger)

	// WebSocket connection endpoint
	wsGroup := rg.Group("/ws")
	wsGroup.GET("", wsHandler.Connect)

	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
