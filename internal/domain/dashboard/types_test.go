package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	for _, bad := range []string{"", "Compact", "quantum", "dashboard-compact"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestModeTopic(t *testing.T) {
	assert.Equal(t, "dashboard-compact", ModeCompact.Topic())
	assert.Equal(t, "dashboard-autopilot", ModeAutopilot.Topic())
}

func TestNotificationFromInsight(t *testing.T) {
	n := NotificationFromInsight(Insight{ID: "i-1", Title: "t", Message: "m", Impact: ImpactHigh})

	assert.Equal(t, "i-1", n.ID)
	assert.Equal(t, SeverityWarning, n.Severity)
	assert.False(t, n.Read)
	assert.Equal(t, SeverityInfo, ImpactMedium.Severity())
	assert.Equal(t, SeveritySuccess, ImpactLow.Severity())
}
