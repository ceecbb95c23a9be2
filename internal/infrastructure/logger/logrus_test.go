package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogrusLogger_JSONFieldsAndLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Level = LevelWarn
	cfg.Fields = map[string]string{"service": "hub"}

	var buf bytes.Buffer
	log := NewLogrusLogger(cfg)
	log.SetOutput(&buf)

	child := log.WithField("component", "test")
	child.Info("dropped")
	child.Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "hub", line["service"])
	assert.Equal(t, "test", line["component"])

	// Derived loggers share the level with their parent.
	buf.Reset()
	child.SetLevel(LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
