package subscriber

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/application/dispatch"
	"go-dashboard-hub/internal/application/facade"
	"go-dashboard-hub/internal/application/source"
	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
	wsiface "go-dashboard-hub/internal/interfaces/websocket"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newSubscriber(t *testing.T, cfg Config) *Subscriber {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "ws://127.0.0.1:1/ws"
	}
	s, err := New(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func insightEvent(id string) event.Event {
	return event.MustNew(id, event.NameAutomatedInsight, t0, event.Insight{Insight: dashboard.Insight{
		ID:     id,
		Title:  "t-" + id,
		Impact: dashboard.ImpactHigh,
	}})
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{}, logger.NewNopLogger())
	assert.Error(t, err)

	_, err = New(Config{URL: "ws://x/ws", Mode: "turbo"}, logger.NewNopLogger())
	assert.Error(t, err)

	s := newSubscriber(t, Config{})
	assert.Equal(t, dashboard.ModeCompact, s.Snapshot().Mode)
}

func TestApply_InsightsAreDeduplicatedAndBounded(t *testing.T) {
	s := newSubscriber(t, Config{MaxInsights: 2})

	assert.True(t, s.Apply(insightEvent("a")))
	assert.False(t, s.Apply(insightEvent("a")))
	assert.True(t, s.Apply(insightEvent("b")))
	assert.True(t, s.Apply(insightEvent("c")))

	st := s.Snapshot()
	require.Len(t, st.Insights, 2)
	assert.Equal(t, "c", st.Insights[0].ID)
	assert.Equal(t, "b", st.Insights[1].ID)
	assert.Equal(t, dashboard.SeverityWarning, st.Insights[0].Severity)
	assert.Equal(t, 2, s.UnreadCount())

	// Evicted from the list but still remembered.
	assert.False(t, s.Apply(insightEvent("a")))
}

func TestApply_MarkRead(t *testing.T) {
	s := newSubscriber(t, Config{})
	s.Apply(insightEvent("a"))
	s.Apply(insightEvent("b"))

	assert.True(t, s.MarkRead("a"))
	assert.False(t, s.MarkRead("zzz"))
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, 1, s.Snapshot().UnreadCount())
}

func TestApply_StatusAndMessagesUpdateInPlace(t *testing.T) {
	s := newSubscriber(t, Config{})

	s.Apply(event.MustNew("1", event.NameWhatsAppStatus, t0, event.WhatsAppStatus{Connected: true, LastActivity: t0}))
	s.Apply(event.MustNew("2", event.NameWhatsAppStatus, t0.Add(time.Minute), event.WhatsAppStatus{Connected: false}))

	s.Apply(event.MustNew("3", event.NameMessageSent, t0, event.MessageStatus{ID: "m1", Status: "queued"}))
	s.Apply(event.MustNew("4", event.NameMessageSent, t0, event.MessageStatus{ID: "m1", Status: "delivered"}))
	s.Apply(event.MustNew("5", event.NameMessageSent, t0, event.MessageStatus{ID: "m2", Status: "delivered"}))

	st := s.Snapshot()
	require.Len(t, st.Statuses, 1)
	assert.Equal(t, "disconnected", st.Statuses[EntityWhatsApp].Status)
	assert.Equal(t, t0.Add(time.Minute), st.Statuses[EntityWhatsApp].UpdatedAt)
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "delivered", st.Messages["m1"].Status)
}

func TestApply_MessagesAreBounded(t *testing.T) {
	s := newSubscriber(t, Config{MaxMessages: 2})

	s.Apply(event.MustNew("1", event.NameMessageSent, t0, event.MessageStatus{ID: "m1", Status: "queued"}))
	s.Apply(event.MustNew("2", event.NameMessageSent, t0, event.MessageStatus{ID: "m2", Status: "queued"}))
	s.Apply(event.MustNew("3", event.NameMessageSent, t0, event.MessageStatus{ID: "m1", Status: "delivered"}))
	s.Apply(event.MustNew("4", event.NameMessageSent, t0, event.MessageStatus{ID: "m3", Status: "queued"}))

	st := s.Snapshot()
	require.Len(t, st.Messages, 2)
	assert.NotContains(t, st.Messages, "m1")
	assert.Equal(t, "queued", st.Messages["m2"].Status)
	assert.Equal(t, "queued", st.Messages["m3"].Status)
}

func TestApply_SummaryReplacesMetrics(t *testing.T) {
	s := newSubscriber(t, Config{})

	first := dashboard.Metrics{Leads: dashboard.LeadMetrics{Total: 10}}
	second := dashboard.Metrics{Customers: dashboard.CustomerMetrics{Total: 7}}
	s.Apply(event.MustNew("1", event.NameDailySummary, t0, event.DailySummary{Data: first, Timestamp: t0}))
	s.Apply(event.MustNew("2", event.NameDailySummary, t0, event.DailySummary{Data: second, Timestamp: t0.Add(24 * time.Hour)}))

	st := s.Snapshot()
	require.NotNil(t, st.Metrics)
	assert.Equal(t, second, *st.Metrics)
	assert.Equal(t, t0.Add(24*time.Hour), st.MetricsAt)
}

func TestHandleFrame_IgnoresUnknownEvents(t *testing.T) {
	s := newSubscriber(t, Config{})
	calls := 0
	s.OnChange(func(State) { calls++ })

	s.handleFrame(frame{ID: "x", Type: "stock-ticker", Data: []byte(`{}`)})
	s.handleFrame(frame{ID: "y", Type: "new-insight", Data: []byte(`not json`)})
	assert.Equal(t, 0, calls)

	s.handleFrame(frame{ID: "z", Type: "new-insight", Data: []byte(`{"id":"z","title":"hello","impact":"low"}`)})
	assert.Equal(t, 1, calls)
	assert.Equal(t, "hello", s.Snapshot().Insights[0].Title)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newSubscriber(t, Config{})
	s.Apply(insightEvent("a"))

	st := s.Snapshot()
	st.Insights[0].Read = true
	st.Statuses["x"] = EntityStatus{}

	assert.Equal(t, 1, s.UnreadCount())
	assert.Empty(t, s.Snapshot().Statuses)
}

func TestSetModeWhileDisconnected(t *testing.T) {
	s := newSubscriber(t, Config{})
	require.NoError(t, s.SetMode(dashboard.ModeAutopilot))
	assert.Equal(t, dashboard.ModeAutopilot, s.Snapshot().Mode)
	assert.Error(t, s.SetMode("turbo"))
	assert.ErrorIs(t, s.CheckWhatsAppStatus(), ErrNotConnected)
}

type server struct {
	hub        *hub.Hub
	dispatcher *dispatch.Dispatcher
	url        string
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNopLogger()
	clock := clockwork.NewRealClock()

	h := hub.New(log)
	require.NoError(t, h.Start(context.Background()))
	d := dispatch.New(h, nil, log)
	svc := facade.NewDashboardApplicationService(clock, source.NewRandomGenerator(), d, facade.DeliveryDelay{}, log)

	r := gin.New()
	wsiface.InitWebSocketRouter(log, h, svc, clock, wsiface.Config{SendBuffer: 16, AutoLeavePrevious: true}, r.Group(""))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		svc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Stop(ctx)
		srv.Close()
	})
	return &server{hub: h, dispatcher: d, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func run(t *testing.T, s *Subscriber) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(20 * time.Millisecond)
}

func TestRun_SubscribesAndMerges(t *testing.T) {
	srv := newServer(t)
	s := newSubscriber(t, Config{URL: srv.url, NewBackOff: fastBackOff})
	run(t, s)

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected && len(srv.hub.Subscribers("dashboard-compact")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	evt := source.NewRandomGenerator().AutomatedInsight(time.Now())
	for i := 0; i < 2; i++ {
		_, err := srv.dispatcher.Publish(context.Background(), "dashboard-compact", evt)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return len(s.Snapshot().Insights) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.SetMode(dashboard.ModeAdvanced))
	require.Eventually(t, func() bool {
		return len(srv.hub.Subscribers("dashboard-advanced")) == 1 && len(srv.hub.Subscribers("dashboard-compact")) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.CheckWhatsAppStatus())
	require.Eventually(t, func() bool {
		return s.Snapshot().Statuses[EntityWhatsApp].Status == "connected"
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, s.Snapshot().Insights, 1)
}

func TestRun_ReconnectsAndResubscribes(t *testing.T) {
	srv := newServer(t)
	s := newSubscriber(t, Config{URL: srv.url, Mode: dashboard.ModeAdvanced, NewBackOff: fastBackOff})

	var (
		mu       sync.Mutex
		sawStale bool
	)
	s.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		if st.Stale {
			sawStale = true
		}
	})
	run(t, s)

	require.Eventually(t, func() bool {
		return len(srv.hub.Subscribers("dashboard-advanced")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	first := srv.hub.Subscribers("dashboard-advanced")[0]

	for _, conn := range srv.hub.GetConnections() {
		require.NoError(t, conn.Close())
	}

	require.Eventually(t, func() bool {
		subs := srv.hub.Subscribers("dashboard-advanced")
		st := s.Snapshot()
		return len(subs) == 1 && subs[0] != first && st.Connected && !st.Stale
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawStale)
}

func TestRun_ModeSwitchSurvivesReconnects(t *testing.T) {
	srv := newServer(t)
	s := newSubscriber(t, Config{URL: srv.url, NewBackOff: fastBackOff})
	run(t, s)

	require.Eventually(t, func() bool {
		return len(srv.hub.Subscribers("dashboard-compact")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	modes := []dashboard.Mode{dashboard.ModeAdvanced, dashboard.ModeAutopilot, dashboard.ModeCompact}
	for i := 0; i < 30; i++ {
		if i%3 == 0 {
			for _, conn := range srv.hub.GetConnections() {
				_ = conn.Close()
			}
		}
		// A write may fail on a connection the server just closed; the mode
		// is still recorded for the next session.
		_ = s.SetMode(modes[i%len(modes)])
		time.Sleep(2 * time.Millisecond)
	}
	_ = s.SetMode(dashboard.ModeAutopilot)

	require.Eventually(t, func() bool {
		return s.Snapshot().Connected &&
			len(srv.hub.Subscribers("dashboard-autopilot")) == 1 &&
			len(srv.hub.Subscribers("dashboard-advanced")) == 0 &&
			len(srv.hub.Subscribers("dashboard-compact")) == 0
	}, 3*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, srv.hub.Subscribers("dashboard-autopilot"), 1)
	assert.Equal(t, dashboard.ModeAutopilot, s.Snapshot().Mode)
}
