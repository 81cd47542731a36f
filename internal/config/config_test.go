package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("TWITCH_CLIENT_ID", "test-client-id")
	t.Setenv("TWITCH_CLIENT_SECRET", "test-client-secret")
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.DiscordToken)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "test-client-id", cfg.TwitchClientID)
	assert.Equal(t, "test-client-secret", cfg.TwitchClientSecret)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		skipEnv string
		wantErr string
	}{
		{"missing DISCORD_TOKEN", "DISCORD_TOKEN", "DISCORD_TOKEN is required"},
		{"missing MONGO_URI", "MONGO_URI", "MONGO_URI is required"},
		{"missing REDIS_URL", "REDIS_URL", "REDIS_URL is required"},
		{"missing TWITCH_CLIENT_ID", "TWITCH_CLIENT_ID", "TWITCH_CLIENT_ID is required"},
		{"missing TWITCH_CLIENT_SECRET", "TWITCH_CLIENT_SECRET", "TWITCH_CLIENT_SECRET is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.skipEnv, "")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "twitchnotify:events", cfg.EventChannel)
	assert.Equal(t, 60*time.Second, cfg.TrackerInterval)
	assert.Equal(t, 300*time.Second, cfg.ReconcilerInterval)
	assert.Equal(t, 30*time.Minute, cfg.RebuildInterval)
	assert.Equal(t, 100*time.Second, cfg.WatchdogInterval)
}

func TestLoad_CustomIntervals(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRACKER_INTERVAL", "15s")
	t.Setenv("RECONCILER_INTERVAL", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.TrackerInterval)
	assert.Equal(t, 2*time.Minute, cfg.ReconcilerInterval)
}

func TestLoad_RejectsNonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRACKER_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACKER_INTERVAL must be positive")
}
