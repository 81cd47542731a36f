// Package discord adapts the Discord REST API to the domain.ChatPlatform
// interface. The engine never sees discordgo types; payloads are converted at
// this boundary.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// Adapter implements domain.ChatPlatform on a discordgo session.
type Adapter struct {
	session *discordgo.Session
}

// NewAdapter wraps an opened discordgo session.
func NewAdapter(session *discordgo.Session) *Adapter {
	return &Adapter{session: session}
}

// NewSession creates and opens a discordgo session with the intents the bot
// needs (guilds only; the engine never reads message content).
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return session, nil
}

// isNotFound reports whether err is a Discord unknown-resource error.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMessage,
			discordgo.ErrCodeUnknownRole:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func toEmbed(e domain.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: e.Title,
		URL:   e.URL,
		Color: e.Color,
	}
	if e.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    e.AuthorName,
			URL:     e.AuthorURL,
			IconURL: e.AuthorIconURL,
		}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if e.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.FooterText != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText}
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}
	return embed
}

func (a *Adapter) PostMessage(ctx context.Context, channelID string, payload domain.MessagePayload) (string, error) {
	msg, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: payload.Content,
		Embeds:  []*discordgo.MessageEmbed{toEmbed(payload.Embed)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("post message to %q: %w", channelID, err)
	}
	return msg.ID, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID string, payload domain.MessagePayload) error {
	embeds := []*discordgo.MessageEmbed{toEmbed(payload.Embed)}
	_, err := a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: channelID,
		ID:      messageID,
		Embeds:  &embeds,
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("edit message %q in %q: %w", messageID, channelID, err)
	}
	return nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete message %q in %q: %w", messageID, channelID, err)
	}
	return nil
}

func (a *Adapter) GetChannel(ctx context.Context, channelID string) (*domain.Channel, bool, error) {
	ch, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get channel %q: %w", channelID, err)
	}
	return &domain.Channel{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Name:    ch.Name,
	}, true, nil
}

func (a *Adapter) GetRole(ctx context.Context, guildID, roleID string) (*domain.Role, bool, error) {
	roles, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get roles of guild %q: %w", guildID, err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &domain.Role{
				ID:      r.ID,
				Name:    r.Name,
				Mention: r.Mention(),
			}, true, nil
		}
	}
	return nil, false, nil
}

var _ domain.ChatPlatform = (*Adapter)(nil)
