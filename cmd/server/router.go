package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/application/facade"
	"go-dashboard-hub/internal/infrastructure/config"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/infrastructure/metrics"
	"go-dashboard-hub/internal/infrastructure/relay"
	"go-dashboard-hub/internal/interfaces/rest/middleware"
	"go-dashboard-hub/internal/interfaces/rest/v1/handler"
	"go-dashboard-hub/internal/interfaces/sse"
	"go-dashboard-hub/internal/interfaces/websocket"
)

type routerDeps struct {
	cfg         *config.Config
	log         logger.Logger
	clock       clockwork.Clock
	hub         *hub.Hub
	dashboard   *facade.DashboardApplicationService
	dispatcher  *dispatch.Dispatcher
	relay       *relay.Relay // nil when disabled
	registry    *prometheus.Registry
	rateLimiter *middleware.RateLimiter
}

func InitRouter(d routerDeps) http.Handler {
	production := d.cfg.IsProduction()
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	httpMetrics := metrics.NewHTTPMetrics(d.registry)

	router := gin.New()
	router.Use(middleware.Recovery(production, d.log))
	router.Use(httpMetrics.Middleware("/ws", "/sse"))
	router.Use(middleware.RequestLogger(d.log))
	router.Use(middleware.CORS(d.cfg.HTTP.AllowedOrigins))
	router.Use(middleware.Errors(production, d.log))
	router.NoRoute(middleware.NotFound())

	rootGroup := router.Group("")
	rootGroup.GET("/metrics", gin.WrapH(metrics.Handler(d.registry)))

	var relayStatus handler.StatusReporter
	if d.relay != nil {
		relayStatus = d.relay
	}

	handler.InitRESTRouter(
		rootGroup,
		handler.NewHealthHandler(d.clock, d.cfg.AppEnv, d.hub, relayStatus),
		handler.NewDashboardHandler(d.dashboard, d.clock, d.log),
		handler.NewAdminHandler(d.hub, d.dispatcher, d.clock, d.log),
		d.rateLimiter.Middleware(),
	)

	sse.InitSSERouter(d.log, d.hub, d.clock, d.cfg.Hub.SendBuffer, rootGroup)
	websocket.InitWebSocketRouter(d.log, d.hub, d.dashboard, d.clock, websocket.Config{
		AllowedOrigins:    d.cfg.HTTP.AllowedOrigins,
		SendBuffer:        d.cfg.Hub.SendBuffer,
		AutoLeavePrevious: d.cfg.Hub.AutoLeavePrevious,
	}, rootGroup)

	return router
}
