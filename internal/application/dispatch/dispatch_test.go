package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
	"go-dashboard-hub/internal/infrastructure/hub"
	"go-dashboard-hub/internal/infrastructure/logger"
)

type fakeHub struct {
	topics []string
	msgs   []*hub.Message
}

func (f *fakeHub) Broadcast(_ context.Context, topic string, msg *hub.Message) (hub.DeliveryReport, error) {
	f.topics = append(f.topics, topic)
	f.msgs = append(f.msgs, msg)
	return hub.DeliveryReport{Topic: topic, MessageID: msg.ID, Attempted: 2, Delivered: 2}, nil
}

type fakeRelay struct {
	err   error
	calls int
}

func (f *fakeRelay) Publish(context.Context, string, *hub.Message) error {
	f.calls++
	return f.err
}

func sampleEvent(t *testing.T) event.Event {
	t.Helper()
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	evt, err := event.New("evt-1", event.NameAutomatedInsight, ts, event.Insight{Insight: dashboard.Insight{
		ID: "evt-1", Type: "automated", Title: "Periodic Business Analysis", Confidence: 85,
		Impact: dashboard.ImpactLow, Timestamp: ts,
	}})
	require.NoError(t, err)
	return evt
}

func TestToMessage(t *testing.T) {
	msg := ToMessage(sampleEvent(t))

	assert.Equal(t, "evt-1", msg.ID)
	assert.Equal(t, "automated-insight", msg.Type)
	assert.Equal(t, "insight", msg.Headers[hub.HeaderKind])

	ts, ok := msg.Timestamp()
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var wire struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "Periodic Business Analysis", wire.Data["title"])
	assert.Equal(t, 85.0, wire.Data["confidence"])
}

func TestDispatcher_LocalDelivery(t *testing.T) {
	h := &fakeHub{}
	d := New(h, nil, logger.NewNopLogger())

	out, err := d.Publish(context.Background(), hub.TopicAll, sampleEvent(t))
	require.NoError(t, err)
	assert.False(t, out.Relayed)
	assert.Equal(t, 2, out.Delivered)
	assert.Equal(t, []string{hub.TopicAll}, h.topics)
}

func TestDispatcher_RelayedDelivery(t *testing.T) {
	h := &fakeHub{}
	r := &fakeRelay{}
	d := New(h, r, logger.NewNopLogger())

	out, err := d.Publish(context.Background(), "dashboard-compact", sampleEvent(t))
	require.NoError(t, err)
	assert.True(t, out.Relayed)
	assert.Equal(t, "evt-1", out.MessageID)
	assert.Equal(t, 1, r.calls)
	assert.Empty(t, h.msgs)
}

func TestDispatcher_RelayFailureFallsBack(t *testing.T) {
	h := &fakeHub{}
	r := &fakeRelay{err: errors.New("redis down")}
	d := New(h, r, logger.NewNopLogger())

	out, err := d.Publish(context.Background(), "dashboard-compact", sampleEvent(t))
	require.NoError(t, err)
	assert.False(t, out.Relayed)
	assert.Len(t, h.msgs, 1)
}
