package facade

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/application/source"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/port/inbound"
)

const (
	messageStatusQueued    = "queued"
	messageStatusDelivered = "delivered"
	estimatedDelivery      = "2-5 seconds"
	defaultMessageType     = "text"
	publishTimeout         = 5 * time.Second
)

// DeliveryDelay bounds the simulated WhatsApp delivery latency.
type DeliveryDelay struct {
	Min time.Duration
	Max time.Duration
}

// DashboardApplicationService keeps the in-memory business data behind the
// REST API and pushes the events its commands produce.
type DashboardApplicationService struct {
	clock     clockwork.Clock
	generator source.Generator
	publisher dispatch.Publisher
	delay     DeliveryDelay
	logger    logger.Logger

	mu            sync.RWMutex
	companies     []dashboard.Company
	metrics       dashboard.Metrics
	insights      []dashboard.Insight
	integrations  []dashboard.Integration
	workflows     []dashboard.Workflow
	notifications []dashboard.Notification
	whatsapp      dashboard.WhatsAppAccount

	rngMu sync.Mutex
	rng   *rand.Rand
	newID func() string

	pendingMu sync.Mutex
	pending   map[string]clockwork.Timer
	closed    bool
}

var (
	_ inbound.DashboardUseCase = (*DashboardApplicationService)(nil)
	_ source.MetricsSource     = (*DashboardApplicationService)(nil)
)

func NewDashboardApplicationService(
	clock clockwork.Clock,
	generator source.Generator,
	publisher dispatch.Publisher,
	delay DeliveryDelay,
	log logger.Logger,
) *DashboardApplicationService {
	now := clock.Now()
	return &DashboardApplicationService{
		clock:         clock,
		generator:     generator,
		publisher:     publisher,
		delay:         delay,
		logger:        log.WithField("component", "dashboard"),
		companies:     seedCompanies(),
		metrics:       seedMetrics(),
		insights:      seedInsights(now),
		integrations:  seedIntegrations(now),
		workflows:     seedWorkflows(now),
		notifications: seedNotifications(now),
		whatsapp:      seedWhatsApp(now),
		rng:           rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID:         uuid.NewString,
		pending:       make(map[string]clockwork.Timer),
	}
}

func (s *DashboardApplicationService) Company() dashboard.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companies[0]
}

func (s *DashboardApplicationService) Metrics() dashboard.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

func (s *DashboardApplicationService) Revenue() dashboard.RevenueMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.Revenue
}

// Insights filters by category first, then truncates to the limit. Newest
// insights come first.
func (s *DashboardApplicationService) Insights(q inbound.InsightQuery) inbound.InsightPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]dashboard.Insight, 0, len(s.insights))
	for _, in := range s.insights {
		if q.Category != "" && in.Type != q.Category {
			continue
		}
		items = append(items, in)
	}
	if q.Limit >= 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return inbound.InsightPage{Items: items, Total: len(s.insights)}
}

// GenerateInsight stores a freshly generated insight and broadcasts it to
// every connection. A failed broadcast does not fail the request.
func (s *DashboardApplicationService) GenerateInsight(ctx context.Context, cmd inbound.GenerateInsightCommand) (dashboard.Insight, error) {
	evt := s.generator.GenerateInsight(s.clock.Now(), source.GenerateRequest{Type: cmd.Type, Context: cmd.Context})
	payload, ok := evt.Payload.(event.Insight)
	if !ok {
		return dashboard.Insight{}, fmt.Errorf("generator returned %s payload for new insight", evt.Kind())
	}

	s.mu.Lock()
	s.insights = append([]dashboard.Insight{payload.Insight}, s.insights...)
	s.mu.Unlock()

	out, err := s.publisher.Publish(ctx, hub.TopicAll, evt)
	if err != nil {
		s.logger.Warnf("New insight %s not broadcast: %v", evt.ID, err)
	} else {
		s.logger.Infof("New AI insight generated: %s (delivered %d)", evt.ID, out.Delivered)
	}
	return payload.Insight, nil
}

func (s *DashboardApplicationService) Notifications() []dashboard.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]dashboard.Notification(nil), s.notifications...)
}

func (s *DashboardApplicationService) Workflows() []dashboard.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]dashboard.Workflow(nil), s.workflows...)
}

func (s *DashboardApplicationService) Integrations() []dashboard.Integration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]dashboard.Integration(nil), s.integrations...)
}

func (s *DashboardApplicationService) WhatsAppStatus() dashboard.WhatsAppAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.whatsapp
}

// SendWhatsAppMessage queues a simulated message. After the configured delay
// a message-sent event with status delivered is broadcast to every
// connection.
func (s *DashboardApplicationService) SendWhatsAppMessage(_ context.Context, cmd inbound.SendMessageCommand) (inbound.MessageReceipt, error) {
	if cmd.To == "" || cmd.Message == "" {
		return inbound.MessageReceipt{}, fmt.Errorf("%w: phone number and message are required", inbound.ErrValidation)
	}
	if cmd.Type == "" {
		cmd.Type = defaultMessageType
	}

	id := s.newID()
	delay := s.deliveryDelay()

	s.pendingMu.Lock()
	if s.closed {
		s.pendingMu.Unlock()
		return inbound.MessageReceipt{}, fmt.Errorf("dashboard service is closed")
	}
	s.pending[id] = s.clock.AfterFunc(delay, func() { s.deliver(id, cmd) })
	s.pendingMu.Unlock()

	s.mu.Lock()
	s.whatsapp.MessagesSent++
	s.whatsapp.LastActivity = s.clock.Now()
	s.mu.Unlock()

	s.logger.Infof("WhatsApp message queued: %s to %s (delivery in %s)", id, cmd.To, delay)
	return inbound.MessageReceipt{
		MessageID:         id,
		Status:            messageStatusQueued,
		EstimatedDelivery: estimatedDelivery,
	}, nil
}

func (s *DashboardApplicationService) deliver(id string, cmd inbound.SendMessageCommand) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()

	now := s.clock.Now()
	evt := event.MustNew(id, event.NameMessageSent, now, event.MessageStatus{
		ID:        id,
		To:        cmd.To,
		Message:   cmd.Message,
		Type:      cmd.Type,
		Status:    messageStatusDelivered,
		Timestamp: now,
	})

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := s.publisher.Publish(ctx, hub.TopicAll, evt); err != nil {
		s.logger.Warnf("Delivery status for %s not broadcast: %v", id, err)
		return
	}
	s.logger.Infof("WhatsApp message %s delivered to %s", id, cmd.To)
}

func (s *DashboardApplicationService) deliveryDelay() time.Duration {
	spread := s.delay.Max - s.delay.Min
	if spread <= 0 {
		return s.delay.Min
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.delay.Min + time.Duration(s.rng.Int64N(int64(spread)+1))
}

// PendingDeliveries reports how many simulated messages are still in flight.
func (s *DashboardApplicationService) PendingDeliveries() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Close cancels every pending delivery.
func (s *DashboardApplicationService) Close() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	s.closed = true
	for id, timer := range s.pending {
		timer.Stop()
		delete(s.pending, id)
	}
}
