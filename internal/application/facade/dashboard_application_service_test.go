package facade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/application/source"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	"go-dashboard-hub/internal/port/inbound"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []event.Event
	notify chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{notify: make(chan struct{}, 8)}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, evt event.Event) (dispatch.Outcome, error) {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, evt)
	p.mu.Unlock()
	p.notify <- struct{}{}
	return dispatch.Outcome{DeliveryReport: hub.DeliveryReport{Topic: topic, MessageID: evt.ID, Delivered: 1}}, nil
}

func (p *recordingPublisher) published() ([]string, []event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...), append([]event.Event(nil), p.events...)
}

func newService(t *testing.T) (*DashboardApplicationService, *clockwork.FakeClock, *recordingPublisher) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	pub := newRecordingPublisher()
	svc := NewDashboardApplicationService(
		clock,
		source.NewRandomGenerator(),
		pub,
		DeliveryDelay{Min: time.Second, Max: 3 * time.Second},
		logger.NewNopLogger(),
	)
	t.Cleanup(svc.Close)
	return svc, clock, pub
}

func TestService_SeedData(t *testing.T) {
	svc, _, _ := newService(t)

	assert.Equal(t, "TechnoServe Consulting", svc.Company().Name)
	assert.Equal(t, int64(7500000), svc.Metrics().Revenue.Current)
	assert.Len(t, svc.Revenue().Trends, 12)
	assert.Len(t, svc.Workflows(), 2)
	assert.Len(t, svc.Integrations(), 2)
	assert.Len(t, svc.Notifications(), 2)
	assert.True(t, svc.WhatsAppStatus().Connected)
}

func TestService_InsightsFilterAndLimit(t *testing.T) {
	svc, _, _ := newService(t)

	page := svc.Insights(inbound.InsightQuery{Limit: 10})
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 2)

	page = svc.Insights(inbound.InsightQuery{Limit: 10, Category: "customer-behavior"})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2", page.Items[0].ID)
	assert.Equal(t, 2, page.Total)

	page = svc.Insights(inbound.InsightQuery{Limit: 1})
	assert.Len(t, page.Items, 1)
}

func TestService_GenerateInsightPrependsAndBroadcasts(t *testing.T) {
	svc, _, pub := newService(t)

	insight, err := svc.GenerateInsight(context.Background(), inbound.GenerateInsightCommand{Context: "lead routing"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, insight.Confidence, 75.0)
	assert.LessOrEqual(t, insight.Confidence, 95.0)
	assert.Equal(t, "general", insight.Type)

	page := svc.Insights(inbound.InsightQuery{Limit: 10})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, insight.ID, page.Items[0].ID)

	topics, events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, hub.TopicAll, topics[0])
	assert.Equal(t, event.NameNewInsight, events[0].Name)
	assert.Equal(t, insight.ID, events[0].ID)
}

func TestService_SendWhatsAppMessage(t *testing.T) {
	svc, clock, pub := newService(t)
	sentBefore := svc.WhatsAppStatus().MessagesSent

	_, err := svc.SendWhatsAppMessage(context.Background(), inbound.SendMessageCommand{Message: "hi"})
	assert.ErrorIs(t, err, inbound.ErrValidation)

	receipt, err := svc.SendWhatsAppMessage(context.Background(), inbound.SendMessageCommand{To: "+919800000000", Message: "Namaste"})
	require.NoError(t, err)
	assert.Equal(t, "queued", receipt.Status)
	assert.Equal(t, "2-5 seconds", receipt.EstimatedDelivery)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Equal(t, 1, svc.PendingDeliveries())
	assert.Equal(t, sentBefore+1, svc.WhatsAppStatus().MessagesSent)

	// Nothing before the minimum delay.
	clock.Advance(999 * time.Millisecond)
	_, events := pub.published()
	assert.Empty(t, events)

	clock.Advance(2*time.Second + time.Millisecond)
	select {
	case <-pub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery status not published")
	}

	topics, events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, hub.TopicAll, topics[0])
	assert.Equal(t, event.NameMessageSent, events[0].Name)
	status := events[0].Payload.(event.MessageStatus)
	assert.Equal(t, receipt.MessageID, status.ID)
	assert.Equal(t, "delivered", status.Status)
	assert.Equal(t, "text", status.Type)
	assert.Eventually(t, func() bool { return svc.PendingDeliveries() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_CloseCancelsPendingDeliveries(t *testing.T) {
	svc, clock, pub := newService(t)

	_, err := svc.SendWhatsAppMessage(context.Background(), inbound.SendMessageCommand{To: "+91", Message: "x"})
	require.NoError(t, err)

	svc.Close()
	clock.Advance(5 * time.Second)

	_, events := pub.published()
	assert.Empty(t, events)
	_, err = svc.SendWhatsAppMessage(context.Background(), inbound.SendMessageCommand{To: "+91", Message: "x"})
	assert.Error(t, err)
}
