package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dashboard-hub/internal/infrastructure/logger"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.InsightInterval)
	assert.True(t, cfg.Hub.AutoLeavePrevious)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	yamlDoc := `
appEnv: staging
http:
  addr: ":9000"
scheduler:
  insightInterval: 30s
  dailyAt: "07:15"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.AppEnv)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.InsightInterval)
	assert.Equal(t, 1000, cfg.RateLimit.Max)

	hour, minute, err := cfg.Scheduler.DailyClock()
	require.NoError(t, err)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 15, minute)

	assert.Equal(t, logger.LevelDebug, cfg.LoggerConfig().Level)
}

func TestLoad_ProductionTightensRateLimit(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", EnvProduction)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 100, cfg.RateLimit.Max)
}

func TestLoad_UnreadableFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorIs(t, err, ErrConfigFileUnreadable)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no addr", func(c *Config) { c.HTTP.Addr = "" }, ErrHTTPAddrMissing},
		{"zero interval", func(c *Config) { c.Scheduler.InsightInterval = 0 }, ErrInsightIntervalInvalid},
		{"bad daily", func(c *Config) { c.Scheduler.DailyAt = "9am" }, ErrDailyAtInvalid},
		{"zero buffer", func(c *Config) { c.Hub.SendBuffer = 0 }, ErrHubBufferInvalid},
		{"zero rate", func(c *Config) { c.RateLimit.Max = 0 }, ErrRateLimitInvalid},
		{"relay without channel", func(c *Config) { c.Relay.RedisAddr = "localhost:6379"; c.Relay.Channel = "" }, ErrRelayChannelMissing},
		{"delay range", func(c *Config) { c.WhatsApp.DeliveryDelayMin = time.Minute }, ErrDeliveryDelayRangeInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}
