package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/workhours.db"`

	DefaultTZ string `envconfig:"DEFAULT_TZ" default:"UTC"`
	WeekStart string `envconfig:"WEEK_START" default:"monday"` // monday|sunday

	DefaultRate float64 `envconfig:"DEFAULT_RATE" default:"2.50"` // per hour
	Currency    string  `envconfig:"CURRENCY" default:"$"`

	AdminChatID int64 `envconfig:"ADMIN_CHAT_ID"` // /rollover allowed from here

	RolloverPoll    time.Duration `envconfig:"ROLLOVER_POLL" default:"5m"`
	RolloverLockTTL time.Duration `envconfig:"ROLLOVER_LOCK_TTL" default:"1h"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
