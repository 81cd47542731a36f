package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0m"},
		{"under a minute", 30 * time.Second, "0m"},
		{"minutes only", 5 * time.Minute, "5m"},
		{"hours and minutes", 3*time.Hour + 7*time.Minute, "3h 7m"},
		{"exact hours", 2 * time.Hour, "2h"},
		{"days", 49*time.Hour + 3*time.Minute, "2d 1h 3m"},
		{"days without hours", 24 * time.Hour, "1d"},
		{"negative clamps to zero", -time.Minute, "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestLivePayload(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stream := domain.Stream{
		ID:           "s1",
		UserID:       "42",
		Title:        "Speedrun",
		GameName:     "Tetris",
		ViewerCount:  123,
		ThumbnailURL: "https://example.com/thumb-{width}x{height}.jpg",
		StartedAt:    now.Add(-90 * time.Minute),
	}
	user := domain.StreamUser{ID: "42", DisplayName: "Streamer", ProfileImageURL: "https://example.com/avatar.png"}

	payload := LivePayload(stream, user, nil, now)

	assert.Empty(t, payload.Content)
	assert.Equal(t, "Speedrun", payload.Embed.Title)
	assert.Equal(t, "https://www.twitch.tv/Streamer", payload.Embed.URL)
	assert.Equal(t, "Streamer is live", payload.Embed.AuthorName)
	assert.Equal(t, "https://example.com/thumb-1280x720.jpg", payload.Embed.ImageURL)
	assert.Equal(t, twitchPurple, payload.Embed.Color)
	assert.Equal(t, "Live since 1h 30m | Updated at", payload.Embed.FooterText)
	assert.Equal(t, []domain.EmbedField{
		{Name: "Game", Value: "Tetris", Inline: true},
		{Name: "Viewers", Value: "123", Inline: true},
	}, payload.Embed.Fields)
}

func TestLivePayload_FallbacksForMissingData(t *testing.T) {
	now := time.Now()
	stream := domain.Stream{UserID: "42", StartedAt: now}
	user := domain.StreamUser{ID: "42", DisplayName: "Streamer"}

	payload := LivePayload(stream, user, nil, now)

	assert.Equal(t, "No title set", payload.Embed.Title)
	assert.Equal(t, "N/A", payload.Embed.Fields[0].Value)
	assert.Equal(t, fallbackImageURL, payload.Embed.ImageURL)
}

func TestLivePayload_MentionBecomesContent(t *testing.T) {
	now := time.Now()
	stream := domain.Stream{UserID: "42", StartedAt: now}
	user := domain.StreamUser{ID: "42", DisplayName: "Streamer"}
	mention := &domain.Role{ID: "r1", Name: "notify", Mention: "<@&r1>"}

	payload := LivePayload(stream, user, mention, now)

	assert.Equal(t, "<@&r1>", payload.Content)
}

func TestOfflinePayload(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	startedAt := now.Add(-26 * time.Hour).UnixMilli()
	user := domain.StreamUser{
		ID: "42", DisplayName: "Streamer",
		OfflineImageURL: "https://example.com/offline.png",
	}

	payload := OfflinePayload(user, startedAt, now)

	assert.Equal(t, "Streamer is now offline", payload.Embed.Title)
	assert.Equal(t, "https://example.com/offline.png", payload.Embed.ImageURL)
	assert.Equal(t, "Streamed for 1d 2h | Ended at", payload.Embed.FooterText)
	assert.Equal(t, twitchPurple, payload.Embed.Color)
}

func TestOfflinePayload_FallbackImage(t *testing.T) {
	now := time.Now()
	payload := OfflinePayload(domain.StreamUser{DisplayName: "S"}, now.UnixMilli(), now)
	assert.Equal(t, fallbackImageURL, payload.Embed.ImageURL)
}
