// Package config loads bot configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	DiscordToken       string `env:"DISCORD_TOKEN"`
	MongoURI           string `env:"MONGO_URI"`
	RedisURL           string `env:"REDIS_URL"`
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	// Pub/sub channel the fleet publishes lifecycle events on.
	EventChannel string `env:"EVENT_CHANNEL" default:"twitchnotify:events"`

	TrackerInterval    time.Duration `env:"TRACKER_INTERVAL" default:"60s"`
	ReconcilerInterval time.Duration `env:"RECONCILER_INTERVAL" default:"300s"`
	RebuildInterval    time.Duration `env:"NAME_CACHE_REBUILD_INTERVAL" default:"30m"`
	WatchdogInterval   time.Duration `env:"WATCHDOG_INTERVAL" default:"100s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DISCORD_TOKEN":        cfg.DiscordToken,
		"MONGO_URI":            cfg.MongoURI,
		"REDIS_URL":            cfg.RedisURL,
		"TWITCH_CLIENT_ID":     cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET": cfg.TwitchClientSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	intervals := map[string]time.Duration{
		"TRACKER_INTERVAL":            cfg.TrackerInterval,
		"RECONCILER_INTERVAL":         cfg.ReconcilerInterval,
		"NAME_CACHE_REBUILD_INTERVAL": cfg.RebuildInterval,
		"WATCHDOG_INTERVAL":           cfg.WatchdogInterval,
	}
	for name, value := range intervals {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}
