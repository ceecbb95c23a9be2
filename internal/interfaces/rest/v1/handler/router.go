package handler

import (
	"github.com/gin-gonic/gin"
)

// InitRESTRouter mounts the health, dashboard and admin endpoints. api
// middleware (rate limiting) applies to everything under /api.
func InitRESTRouter(
	rg *gin.RouterGroup,
	health *HealthHandler,
	dashboardHandler *DashboardHandler,
	admin *AdminHandler,
	api ...gin.HandlerFunc,
) {
	rg.GET("/health", health.Health)
	rg.GET("/hub/status", admin.HubStatus)

	apiGroup := rg.Group("/api", api...)
	{
		apiGroup.GET("/dashboard/metrics", dashboardHandler.Metrics)
		apiGroup.GET("/ai/insights", dashboardHandler.Insights)
		apiGroup.POST("/ai/insights/generate", dashboardHandler.GenerateInsight)
		apiGroup.GET("/notifications", dashboardHandler.Notifications)
		apiGroup.GET("/whatsapp/status", dashboardHandler.WhatsAppStatus)
		apiGroup.POST("/whatsapp/send-message", dashboardHandler.SendWhatsAppMessage)
		apiGroup.GET("/automation/workflows", dashboardHandler.Workflows)
		apiGroup.GET("/integrations", dashboardHandler.Integrations)
		apiGroup.GET("/analytics/revenue", dashboardHandler.Revenue)

		apiGroup.POST("/v1/broadcast", admin.Broadcast)
	}
}
