package domain

import (
	"context"
	"time"
)

// --- Model types ---

// Subscription links a Twitch channel to a Discord destination channel.
// At most one subscription exists per (guild, channel, twitch channel) triple.
type Subscription struct {
	GuildID         string  `bson:"guildId"`
	ChannelID       string  `bson:"channelId"`
	TwitchChannelID string  `bson:"twitchChannelId"`
	MentionRoleID   *string `bson:"mentionRole,omitempty"`
	DeleteOnEnd     bool    `bson:"deleteMsgWhenStreamEnded"`
	SubscriptionID  string  `bson:"notifyId"`
}

// LiveSession records a currently posted "channel is live" notification
// message. A row exists iff the message is posted; at most one per
// SubscriptionID.
type LiveSession struct {
	MessageID            string `bson:"messageId"`
	GuildID              string `bson:"guildId"`
	ChannelID            string `bson:"channelId"`
	TwitchChannelID      string `bson:"twitchChannelId"`
	StreamID             string `bson:"streamId"`
	StartedAt            int64  `bson:"startTime"` // epoch milliseconds
	LinkedSubscriptionID string `bson:"linkedNotifyId"`
}

// NameCacheEntry is the persisted id → display name projection. It is derived
// state, rebuilt periodically from subscriptions plus the Twitch API.
type NameCacheEntry struct {
	TwitchChannelID string `bson:"twitchChannelId"`
	DisplayName     string `bson:"name"`
}

// --- Chat platform value types ---

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

type Role struct {
	ID      string
	Name    string
	Mention string
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich message body. The Discord adapter converts
// it to the wire representation.
type Embed struct {
	Title         string
	URL           string
	AuthorName    string
	AuthorURL     string
	AuthorIconURL string
	Fields        []EmbedField
	ImageURL      string
	FooterText    string
	Timestamp     time.Time
	Color         int
}

// MessagePayload is what gets posted or edited: optional mention text plus an
// embed.
type MessagePayload struct {
	Content string
	Embed   Embed
}

// --- Streaming platform value types ---

type StreamUser struct {
	ID              string
	Login           string
	DisplayName     string
	ProfileImageURL string
	OfflineImageURL string
}

type Stream struct {
	ID           string
	UserID       string
	Title        string
	GameName     string
	ViewerCount  int
	ThumbnailURL string
	StartedAt    time.Time
}

// --- Store interfaces (document store) ---

// SubscriptionStore persists notification subscriptions.
type SubscriptionStore interface {
	ListAll(ctx context.Context) ([]Subscription, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, bool, error)
	Create(ctx context.Context, sub Subscription) error
	DeleteBySubscriptionID(ctx context.Context, subscriptionID string) error
	// DeleteByChannel removes every subscription pointing at a Discord channel.
	// Used as self-healing cleanup when the channel no longer exists.
	DeleteByChannel(ctx context.Context, channelID string) (int64, error)
	DistinctTwitchChannelIDs(ctx context.Context) ([]string, error)
}

// LiveSessionStore persists currently posted notification messages.
type LiveSessionStore interface {
	ListAll(ctx context.Context) ([]LiveSession, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*LiveSession, bool, error)
	Insert(ctx context.Context, session LiveSession) error
	DeleteByMessageID(ctx context.Context, messageID string) error
	// ReplaceByMessageID swaps the stored row for the one with the given
	// message id, keeping row identity. Used after a failed edit forces a
	// message to be reposted under a new id.
	ReplaceByMessageID(ctx context.Context, messageID string, session LiveSession) error
}

// NameCacheStore persists the durable copy of the name cache.
type NameCacheStore interface {
	ListAll(ctx context.Context) ([]NameCacheEntry, error)
	Upsert(ctx context.Context, entry NameCacheEntry) error
	// ReplaceAll drops the collection and writes the given entries. Used by
	// the periodic rebuild.
	ReplaceAll(ctx context.Context, entries []NameCacheEntry) error
}

// --- Platform interfaces ---

// ChatPlatform is the Discord surface the engine needs. Lookups report
// absence as ok=false with a nil error; mutations return ErrNotFound when the
// target is gone.
type ChatPlatform interface {
	PostMessage(ctx context.Context, channelID string, payload MessagePayload) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID string, payload MessagePayload) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	GetChannel(ctx context.Context, channelID string) (*Channel, bool, error)
	GetRole(ctx context.Context, guildID, roleID string) (*Role, bool, error)
}

// StreamingPlatform is the Twitch Helix surface the engine needs. A user with
// zero live streams is offline; missing users are simply absent from the
// result slice.
type StreamingPlatform interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]StreamUser, error)
	GetUsersByLogins(ctx context.Context, logins []string) ([]StreamUser, error)
	GetStreamsByUserIDs(ctx context.Context, ids []string) ([]Stream, error)
}

// --- Cycle reporting ---

// CycleReport summarises one pass of a periodic task. Tasks return it from
// RunOnce so tests can assert on exactly what a cycle did.
type CycleReport struct {
	Examined  int
	Posted    int
	Edited    int
	Recreated int
	Removed   int
	Skipped   int
	Errors    int
}

// Task is a periodic unit of work driven by the scheduler.
type Task interface {
	Name() string
	RunOnce(ctx context.Context) (CycleReport, error)
}
