package sse

import (
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, clock clockwork.Clock, sendBuffer int, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, clock, sendBuffer, logger)

	// SSE connection endpoint
	sseGroup := rg.Group("/sse")
	sseGroup.GET("", sseHandler.Connect)

	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
}

