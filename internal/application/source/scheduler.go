package source

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

// MetricsSource supplies the snapshot carried by the daily summary.
type MetricsSource interface {
	Metrics() dashboard.Metrics
}

type SchedulerConfig struct {
	InsightInterval time.Duration
	DailyHour       int
	DailyMinute     int
}

// Scheduler publishes automated insights on a fixed interval and a summary
// once a day, both to every connection.
type Scheduler struct {
	cfg       SchedulerConfig
	clock     clockwork.Clock
	generator Generator
	metrics   MetricsSource
	publisher dispatch.Publisher
	logger    logger.Logger
}

func NewScheduler(
	cfg SchedulerConfig,
	clock clockwork.Clock,
	generator Generator,
	metrics MetricsSource,
	publisher dispatch.Publisher,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		clock:     clock,
		generator: generator,
		metrics:   metrics,
		publisher: publisher,
		logger:    log.WithField("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.InsightInterval)
	defer ticker.Stop()

	daily := s.clock.NewTimer(s.untilNextDaily(s.clock.Now()))
	defer daily.Stop()

	s.logger.Infof("Scheduler started: insight every %s, summary daily at %02d:%02d",
		s.cfg.InsightInterval, s.cfg.DailyHour, s.cfg.DailyMinute)

	for {
		select {
		case <-ticker.Chan():
			evt := s.generator.AutomatedInsight(s.clock.Now())
			s.publish(ctx, "Automated insight", evt.ID, func() (dispatch.Outcome, error) {
				return s.publisher.Publish(ctx, hub.TopicAll, evt)
			})

		case <-daily.Chan():
			evt := s.generator.DailySummary(s.clock.Now(), s.metrics.Metrics())
			s.publish(ctx, "Daily summary", evt.ID, func() (dispatch.Outcome, error) {
				return s.publisher.Publish(ctx, hub.TopicAll, evt)
			})
			daily.Reset(s.untilNextDaily(s.clock.Now()))

		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, what, id string, fn func() (dispatch.Outcome, error)) {
	out, err := fn()
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warnf("%s %s not published: %v", what, id, err)
		}
		return
	}
	s.logger.Infof("%s %s broadcast (delivered %d, dropped %d, relayed %v)",
		what, id, out.Delivered, out.Dropped, out.Relayed)
}

// untilNextDaily returns the wait until the next daily trigger strictly after
// now, in now's location.
func (s *Scheduler) untilNextDaily(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.DailyHour, s.cfg.DailyMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
