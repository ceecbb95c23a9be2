package source

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/domain/dashboard"
	"go-dashboard-hub/internal/domain/event"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestRandomGenerator_GenerateInsightBounds(t *testing.T) {
	g := NewRandomGenerator(WithRand(rand.New(rand.NewPCG(1, 2))))
	now := time.Now()

	seenImpacts := map[dashboard.Impact]bool{}
	ids := map[string]bool{}
	for i := 0; i < 500; i++ {
		evt := g.GenerateInsight(now, GenerateRequest{})
		payload, ok := evt.Payload.(event.Insight)
		require.True(t, ok)

		assert.Equal(t, event.NameNewInsight, evt.Name)
		assert.GreaterOrEqual(t, payload.Confidence, 75.0)
		assert.LessOrEqual(t, payload.Confidence, 95.0)
		assert.Contains(t, dashboard.Impacts(), payload.Impact)
		assert.Equal(t, evt.ID, payload.ID)
		assert.False(t, ids[evt.ID], "duplicate id")

		seenImpacts[payload.Impact] = true
		ids[evt.ID] = true
	}
	assert.Len(t, seenImpacts, 3)
}

func TestRandomGenerator_GenerateInsightDefaults(t *testing.T) {
	g := NewRandomGenerator(WithIDFunc(sequentialIDs()))
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	evt := g.GenerateInsight(now, GenerateRequest{})
	payload := evt.Payload.(event.Insight)
	assert.Equal(t, "id-1", evt.ID)
	assert.Equal(t, "general", payload.Type)
	assert.Contains(t, payload.Message, "business operations")
	assert.Equal(t, now, evt.Timestamp)

	evt = g.GenerateInsight(now, GenerateRequest{Type: "revenue-prediction", Context: "Q3 pricing"})
	payload = evt.Payload.(event.Insight)
	assert.Equal(t, "revenue-prediction", payload.Type)
	assert.Contains(t, payload.Message, "Q3 pricing")
}

func TestRandomGenerator_AutomatedAndSummary(t *testing.T) {
	g := NewRandomGenerator(WithIDFunc(sequentialIDs()))
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	auto := g.AutomatedInsight(now)
	payload := auto.Payload.(event.Insight)
	assert.Equal(t, event.NameAutomatedInsight, auto.Name)
	assert.Equal(t, event.KindInsight, auto.Kind())
	assert.Equal(t, 85.0, payload.Confidence)
	assert.Equal(t, dashboard.ImpactLow, payload.Impact)
	assert.Equal(t, []string{"Continue monitoring"}, payload.Actions)

	metrics := dashboard.Metrics{Revenue: dashboard.RevenueMetrics{Current: 42}}
	summary := g.DailySummary(now, metrics)
	assert.Equal(t, event.KindSummary, summary.Kind())
	sp := summary.Payload.(event.DailySummary)
	assert.Equal(t, "daily-summary", sp.Type)
	assert.Equal(t, int64(42), sp.Data.Revenue.Current)
	assert.NotEqual(t, auto.ID, summary.ID)
}
