package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"go-dashboard-hub/internal/infrastructure/logger"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var (
	ErrConfigFileUnreadable      = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable  = errors.New("config file is unmarshallable")
	ErrHTTPAddrMissing           = errors.New("http.addr is required")
	ErrInsightIntervalInvalid    = errors.New("scheduler.insightInterval must be positive")
	ErrDailyAtInvalid            = errors.New("scheduler.dailyAt must be HH:MM")
	ErrHubBufferInvalid          = errors.New("hub buffer sizes must be positive")
	ErrRateLimitInvalid          = errors.New("rateLimit window and max must be positive")
	ErrRelayChannelMissing       = errors.New("relay.channel is required when relay.redisAddr is set")
	ErrDeliveryDelayRangeInvalid = errors.New("whatsapp.deliveryDelayMin must not exceed deliveryDelayMax")
)

type Config struct {
	AppEnv    string    `yaml:"appEnv" env:"APP_ENV"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Hub       Hub       `yaml:"hub"`
	Scheduler Scheduler `yaml:"scheduler"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Relay     Relay     `yaml:"relay"`
	WhatsApp  WhatsApp  `yaml:"whatsapp"`
}

type HTTP struct {
	Addr           string        `yaml:"addr" env:"HTTP_ADDR"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
	ReadTimeout    time.Duration `yaml:"readTimeout" env:"HTTP_READ_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" env:"HTTP_IDLE_TIMEOUT"`
}

type Log struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`
	Format   string `yaml:"format" env:"LOG_FORMAT"`
	Output   string `yaml:"output" env:"LOG_OUTPUT"`
	FilePath string `yaml:"filePath" env:"LOG_FILE"`
}

type Hub struct {
	CommandBuffer     int  `yaml:"commandBuffer" env:"HUB_COMMAND_BUFFER"`
	SendBuffer        int  `yaml:"sendBuffer" env:"HUB_SEND_BUFFER"`
	AutoLeavePrevious bool `yaml:"autoLeavePrevious" env:"HUB_AUTO_LEAVE_PREVIOUS"`
}

type Scheduler struct {
	InsightInterval time.Duration `yaml:"insightInterval" env:"SCHEDULER_INSIGHT_INTERVAL"`
	DailyAt         string        `yaml:"dailyAt" env:"SCHEDULER_DAILY_AT"`
}

type RateLimit struct {
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	Max    int           `yaml:"max" env:"RATE_LIMIT_MAX"`
}

// Relay is disabled when RedisAddr is empty.
type Relay struct {
	RedisAddr string `yaml:"redisAddr" env:"REDIS_ADDR"`
	Channel   string `yaml:"channel" env:"RELAY_CHANNEL"`
}

type WhatsApp struct {
	DeliveryDelayMin time.Duration `yaml:"deliveryDelayMin" env:"WHATSAPP_DELIVERY_DELAY_MIN"`
	DeliveryDelayMax time.Duration `yaml:"deliveryDelayMax" env:"WHATSAPP_DELIVERY_DELAY_MAX"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		AppEnv: EnvDevelopment,
		HTTP: HTTP{
			Addr:           ":3001",
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    15 * time.Second,
			IdleTimeout:    60 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Hub: Hub{
			CommandBuffer:     256,
			SendBuffer:        64,
			AutoLeavePrevious: true,
		},
		Scheduler: Scheduler{
			InsightInterval: 5 * time.Minute,
			DailyAt:         "09:00",
		},
		RateLimit: RateLimit{
			Window: 15 * time.Minute,
			Max:    1000,
		},
		Relay: Relay{
			Channel: "dashboard-events",
		},
		WhatsApp: WhatsApp{
			DeliveryDelayMin: time.Second,
			DeliveryDelayMax: 3 * time.Second,
		},
	}
}

// Load layers defaults, the YAML file named by CONFIG_FILE, a .env file and
// the process environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := env.Load(cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.AppEnv == EnvProduction && os.Getenv("RATE_LIMIT_MAX") == "" {
		cfg.RateLimit.Max = 100
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFileUnreadable, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFileUnmarshallable, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return ErrHTTPAddrMissing
	}
	if c.Scheduler.InsightInterval <= 0 {
		return ErrInsightIntervalInvalid
	}
	if _, _, err := c.Scheduler.DailyClock(); err != nil {
		return err
	}
	if c.Hub.CommandBuffer <= 0 || c.Hub.SendBuffer <= 0 {
		return ErrHubBufferInvalid
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Max <= 0 {
		return ErrRateLimitInvalid
	}
	if c.Relay.RedisAddr != "" && c.Relay.Channel == "" {
		return ErrRelayChannelMissing
	}
	if c.WhatsApp.DeliveryDelayMin > c.WhatsApp.DeliveryDelayMax {
		return ErrDeliveryDelayRangeInvalid
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DailyClock parses DailyAt into hour and minute.
func (s Scheduler) DailyClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.DailyAt)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrDailyAtInvalid, s.DailyAt)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// LoggerConfig maps the log section onto the logger package's config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.NewDefaultConfig()
	if level, err := logger.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format
	lc.Output = c.Log.Output
	lc.FilePath = c.Log.FilePath
	lc.Fields["environment"] = c.AppEnv
	return lc
}
