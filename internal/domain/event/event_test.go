package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/domain/dashboard"
)

func TestNew_RejectsMismatchedPayload(t *testing.T) {
	now := time.Now()

	_, err := New("id-1", NameDailySummary, now, Insight{})
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = New("id-1", Name("bogus"), now, Insight{})
	assert.ErrorIs(t, err, ErrUnknownName)

	_, err = New("", NameNewInsight, now, Insight{})
	assert.ErrorIs(t, err, ErrMissingID)

	evt, err := New("id-1", NameMessageSent, now, MessageStatus{ID: "m-1"})
	require.NoError(t, err)
	assert.Equal(t, KindMessageStatus, evt.Kind())
}

func TestNameKind(t *testing.T) {
	cases := map[Name]Kind{
		NameNewInsight:       KindInsight,
		NameAutomatedInsight: KindInsight,
		NameConnectionStatus: KindStatus,
		NameWhatsAppStatus:   KindStatus,
		NameMessageSent:      KindMessageStatus,
		NameDailySummary:     KindSummary,
	}
	for name, want := range cases {
		got, ok := name.Kind()
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := Name("whatever").Kind()
	assert.False(t, ok)
}

func TestDecode_InsightKeepsFields(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := Insight{Insight: dashboard.Insight{
		ID:         "ins-1",
		Type:       "automated",
		Title:      "Periodic Business Analysis",
		Confidence: 85,
		Impact:     dashboard.ImpactLow,
		Actions:    []string{"Continue monitoring"},
	}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	evt, err := Decode("ins-1", NameAutomatedInsight, ts, data)
	require.NoError(t, err)

	got, ok := evt.Payload.(Insight)
	require.True(t, ok)
	assert.Equal(t, in.Insight, got.Insight)
	assert.Equal(t, ts, evt.Timestamp)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("x", Name("nope"), time.Now(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownName)

	_, err = Decode("x", NameMessageSent, time.Now(), []byte(`{"id":`))
	assert.Error(t, err)
}
