package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/application/facade"
	"go-dashboard-hub/internal/application/source"
	"go-dashboard-hub/internal/infrastructure/config"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/infrastructure/metrics"
	"go-dashboard-hub/internal/infrastructure/relay"
	"go-dashboard-hub/internal/infrastructure/server"
	"go-dashboard-hub/internal/interfaces/rest/middleware"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx := context.Background()
	sctx := WithSignal(ctx)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogrusLogger(cfg.LoggerConfig())

	dailyHour, dailyMinute, err := cfg.Scheduler.DailyClock()
	if err != nil {
		log.Fatalf("invalid scheduler config: %v", err)
	}

	registry := metrics.NewRegistry()
	hubInstance := hub.New(log,
		hub.WithObserver(metrics.NewHubMetrics(registry)),
		hub.WithCommandBuffer(cfg.Hub.CommandBuffer),
	)

	// Start the hub first
	if err := hubInstance.Start(ctx); err != nil {
		log.Errorf("failed to start hub: %v", err)
		return
	}

	var (
		relayInstance *relay.Relay
		dispatchRelay dispatch.Relay
	)
	if cfg.Relay.RedisAddr != "" {
		transport, err := relay.NewRedisTransport(ctx, cfg.Relay.RedisAddr)
		if err != nil {
			log.Warnf("Redis relay disabled, broadcasting locally only: %v", err)
		} else {
			relayInstance = relay.New(transport, cfg.Relay.Channel, log)
			dispatchRelay = relayInstance
		}
	}

	clock := clockwork.NewRealClock()
	dispatcher := dispatch.New(hubInstance, dispatchRelay, log)
	generator := source.NewRandomGenerator()
	service := facade.NewDashboardApplicationService(clock, generator, dispatcher,
		facade.DeliveryDelay{Min: cfg.WhatsApp.DeliveryDelayMin, Max: cfg.WhatsApp.DeliveryDelayMax}, log)
	scheduler := source.NewScheduler(source.SchedulerConfig{
		InsightInterval: cfg.Scheduler.InsightInterval,
		DailyHour:       dailyHour,
		DailyMinute:     dailyMinute,
	}, clock, generator, service, dispatcher, log)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Max, log)

	router := InitRouter(routerDeps{
		cfg:         cfg,
		log:         log,
		clock:       clock,
		hub:         hubInstance,
		dashboard:   service,
		dispatcher:  dispatcher,
		relay:       relayInstance,
		registry:    registry,
		rateLimiter: rateLimiter,
	})
	httpSrv := server.NewHTTPServer(server.HTTPConfig{
		Addr:        cfg.HTTP.Addr,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
	}, router)

	app := &Application{
		logger:      log.WithField("app", "dashboard-hub"),
		httpSrv:     httpSrv,
		hub:         hubInstance,
		scheduler:   scheduler,
		relay:       relayInstance,
		service:     service,
		rateLimiter: rateLimiter,
	}
	log.Infof("Dashboard hub listening on %s (%s)", cfg.HTTP.Addr, cfg.AppEnv)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

type Application struct {
	logger      logger.Logger
	httpSrv     server.Server
	hub         *hub.Hub
	scheduler   *source.Scheduler
	relay       *relay.Relay
	service     *facade.DashboardApplicationService
	rateLimiter *middleware.RateLimiter
}

// Run serves until ctx ends or a component fails, then shuts down: hub
// first, then HTTP.
func (app *Application) Run(ctx context.Context) error {
	eg, ectx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return app.httpSrv.Start(ectx)
	})

	eg.Go(func() error {
		return app.scheduler.Run(ectx)
	})

	if app.relay != nil {
		eg.Go(func() error {
			return app.relay.Run(ectx, app.hub)
		})
	}

	eg.Go(func() error {
		<-ectx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.service.Close()
		app.rateLimiter.Stop()

		// Stop hub first
		if err := app.hub.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop hub: %v", err)
		}
		if app.relay != nil {
			if err := app.relay.Close(); err != nil {
				app.logger.Errorf("failed to close relay: %v", err)
			}
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
