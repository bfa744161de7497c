// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the notifier needs from the environment.
// Telegram credentials are optional so --dry-run works without them;
// the notifier refuses to start without them when a real send is requested.
type Config struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`

	RedisURL string `envconfig:"REDIS_URL"`

	ResortsPath string `envconfig:"SNOWNOTIFY_RESORTS" default:"resorts.yaml"`
	ForecastURL string `envconfig:"SNOWNOTIFY_FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast"`
	TelegramURL string `envconfig:"SNOWNOTIFY_TELEGRAM_URL" default:"https://api.telegram.org"`

	Timezone     string        `envconfig:"SNOWNOTIFY_TZ" default:"Europe/Berlin"`
	ForecastDays int           `envconfig:"SNOWNOTIFY_FORECAST_DAYS" default:"3"`
	HTTPTimeout  time.Duration `envconfig:"SNOWNOTIFY_HTTP_TIMEOUT" default:"90s"`
	LogLevel     string        `envconfig:"SNOWNOTIFY_LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if c.ForecastDays < 2 {
		return nil, fmt.Errorf("SNOWNOTIFY_FORECAST_DAYS must cover at least tomorrow, got %d", c.ForecastDays)
	}
	return &c, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
