package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

const (
	twitchPurple     = 0x9146FF
	fallbackImageURL = "https://cdn.bypixel.dev/raw/d5gGaa.jpg"

	thumbnailWidth  = "1280"
	thumbnailHeight = "720"
)

// FormatDuration renders a duration as "2d 5h 3m", omitting leading
// zero-valued units. Durations under a minute render as "0m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int64(d.Hours()) / 24
	hours := int64(d.Hours()) % 24
	minutes := int64(d.Minutes()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}

func channelURL(displayName string) string {
	return "https://www.twitch.tv/" + displayName
}

// LivePayload renders the notification for a running stream. mention may be
// nil; if set, its mention string becomes the plain-text content so the role
// actually gets pinged.
func LivePayload(stream domain.Stream, user domain.StreamUser, mention *domain.Role, now time.Time) domain.MessagePayload {
	title := stream.Title
	if strings.TrimSpace(title) == "" {
		title = "No title set"
	}

	game := stream.GameName
	if strings.TrimSpace(game) == "" {
		game = "N/A"
	}

	image := strings.NewReplacer("{width}", thumbnailWidth, "{height}", thumbnailHeight).
		Replace(stream.ThumbnailURL)
	if strings.TrimSpace(image) == "" {
		image = fallbackImageURL
	}

	payload := domain.MessagePayload{
		Embed: domain.Embed{
			Title:         title,
			URL:           channelURL(user.DisplayName),
			AuthorName:    user.DisplayName + " is live",
			AuthorURL:     channelURL(user.DisplayName),
			AuthorIconURL: user.ProfileImageURL,
			Fields: []domain.EmbedField{
				{Name: "Game", Value: game, Inline: true},
				{Name: "Viewers", Value: strconv.Itoa(stream.ViewerCount), Inline: true},
			},
			ImageURL:   image,
			FooterText: fmt.Sprintf("Live since %s | Updated at", FormatDuration(now.Sub(stream.StartedAt))),
			Timestamp:  now,
			Color:      twitchPurple,
		},
	}
	if mention != nil {
		payload.Content = mention.Mention
	}
	return payload
}

// OfflinePayload renders the one-shot stream-ended summary. startedAt is the
// session start in epoch milliseconds.
func OfflinePayload(user domain.StreamUser, startedAt int64, now time.Time) domain.MessagePayload {
	duration := now.Sub(time.UnixMilli(startedAt))

	image := user.OfflineImageURL
	if strings.TrimSpace(image) == "" {
		image = fallbackImageURL
	}

	return domain.MessagePayload{
		Embed: domain.Embed{
			Title:         user.DisplayName + " is now offline",
			URL:           channelURL(user.DisplayName),
			AuthorName:    user.DisplayName,
			AuthorURL:     channelURL(user.DisplayName),
			AuthorIconURL: user.ProfileImageURL,
			ImageURL:      image,
			FooterText:    fmt.Sprintf("Streamed for %s | Ended at", FormatDuration(duration)),
			Timestamp:     now,
			Color:         twitchPurple,
		},
	}
}
