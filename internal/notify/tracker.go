package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
	"github.com/byPixelTV/TwitchNotifyBot/internal/keyvalue"
	"github.com/byPixelTV/TwitchNotifyBot/internal/logging"
	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// trackLockTTL bounds how long a crashed process can hold a per-subscription
// tracking lock.
const trackLockTTL = 30 * time.Second

// LiveTracker is the periodic task that discovers subscriptions whose channel
// has gone live and posts the initial notification message. At most one
// notification exists per subscription; the per-subscription lock keeps two
// processes from posting twice for the same stream.
type LiveTracker struct {
	kv        KeyValue
	subs      domain.SubscriptionStore
	sessions  domain.LiveSessionStore
	chat      domain.ChatPlatform
	streaming domain.StreamingPlatform
	cache     *NameCache
	pubsub    EventPublisher
	channel   string
	clock     clockwork.Clock
}

func NewLiveTracker(
	kv KeyValue,
	subs domain.SubscriptionStore,
	sessions domain.LiveSessionStore,
	chat domain.ChatPlatform,
	streaming domain.StreamingPlatform,
	cache *NameCache,
	pubsub EventPublisher,
	channel string,
	clock clockwork.Clock,
) *LiveTracker {
	return &LiveTracker{
		kv:        kv,
		subs:      subs,
		sessions:  sessions,
		chat:      chat,
		streaming: streaming,
		cache:     cache,
		pubsub:    pubsub,
		channel:   channel,
		clock:     clock,
	}
}

func (t *LiveTracker) Name() string { return "live_tracker" }

// RunOnce walks every subscription without a live session and posts a
// notification for the ones whose channel is currently streaming. Failures
// on one subscription never stop the pass; they are counted and logged.
func (t *LiveTracker) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	var report domain.CycleReport

	sessions, err := t.sessions.ListAll(ctx)
	if err != nil {
		return report, err
	}
	tracked := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		tracked[s.LinkedSubscriptionID] = struct{}{}
	}

	subs, err := t.subs.ListAll(ctx)
	if err != nil {
		return report, err
	}

	for _, sub := range subs {
		if _, ok := tracked[sub.SubscriptionID]; ok {
			continue
		}
		report.Examined++

		if _, ok, err := t.cache.Resolve(ctx, sub.TwitchChannelID); err != nil {
			slog.Warn("Skipping subscription, name resolution failed",
				"subscription_id", sub.SubscriptionID,
				"twitch_channel_id", sub.TwitchChannelID,
				"error", err)
			report.Errors++
			continue
		} else if !ok {
			report.Skipped++
			continue
		}

		executed, err := t.kv.WithLock(ctx, "livetrack:"+sub.SubscriptionID, trackLockTTL, func(ctx context.Context) error {
			return t.trackCandidate(ctx, sub, &report)
		})
		if err != nil {
			slog.Warn("Tracking pass failed for subscription",
				"subscription_id", sub.SubscriptionID,
				"twitch_channel_id", sub.TwitchChannelID,
				"error", err)
			report.Errors++
			continue
		}
		if !executed {
			// Another process holds the lock; it will handle this one.
			report.Skipped++
		}
	}
	return report, nil
}

// trackCandidate runs under the per-subscription lock. It rechecks the store
// first because another process may have posted between our snapshot and the
// lock acquisition.
func (t *LiveTracker) trackCandidate(ctx context.Context, sub domain.Subscription, report *domain.CycleReport) error {
	log := logging.WithSubscription(sub.SubscriptionID)

	if _, exists, err := t.sessions.FindBySubscriptionID(ctx, sub.SubscriptionID); err != nil {
		return err
	} else if exists {
		report.Skipped++
		return nil
	}

	streams, err := t.streaming.GetStreamsByUserIDs(ctx, []string{sub.TwitchChannelID})
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		// Offline.
		report.Skipped++
		return nil
	}
	stream := streams[0]

	users, err := t.streaming.GetUsersByIDs(ctx, []string{sub.TwitchChannelID})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		report.Skipped++
		return nil
	}
	user := users[0]

	if _, ok, err := t.chat.GetChannel(ctx, sub.ChannelID); err != nil {
		return err
	} else if !ok {
		return t.dropChannel(ctx, sub, report)
	}

	var mention *domain.Role
	if sub.MentionRoleID != nil {
		role, ok, err := t.chat.GetRole(ctx, sub.GuildID, *sub.MentionRoleID)
		if err != nil {
			log.Warn("Mention role lookup failed, posting without mention",
				"role_id", *sub.MentionRoleID,
				"error", err)
		} else if ok {
			mention = role
		}
	}

	payload := LivePayload(stream, user, mention, t.clock.Now())
	messageID, err := t.chat.PostMessage(ctx, sub.ChannelID, payload)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return t.dropChannel(ctx, sub, report)
		}
		return err
	}

	session := domain.LiveSession{
		MessageID:            messageID,
		GuildID:              sub.GuildID,
		ChannelID:            sub.ChannelID,
		TwitchChannelID:      sub.TwitchChannelID,
		StreamID:             stream.ID,
		StartedAt:            stream.StartedAt.UnixMilli(),
		LinkedSubscriptionID: sub.SubscriptionID,
	}
	if err := t.sessions.Insert(ctx, session); err != nil {
		return err
	}
	report.Posted++
	metrics.LiveSessionsCreated.Inc()
	log.Info("Posted live notification",
		"twitch_channel", user.DisplayName,
		"stream_id", stream.ID,
		"message_id", messageID)

	if t.pubsub != nil {
		if err := t.pubsub.Publish(ctx, t.channel, keyvalue.ActionLiveStarted, keyvalue.LiveStartedPayload{
			SubscriptionID:  sub.SubscriptionID,
			TwitchChannelID: sub.TwitchChannelID,
			StreamID:        stream.ID,
			MessageID:       messageID,
		}); err != nil {
			log.Warn("Failed to announce live start", "error", err)
		}
	}
	return nil
}

// dropChannel removes every subscription pointing at a Discord channel that
// no longer exists.
func (t *LiveTracker) dropChannel(ctx context.Context, sub domain.Subscription, report *domain.CycleReport) error {
	removed, err := t.subs.DeleteByChannel(ctx, sub.ChannelID)
	if err != nil {
		return err
	}
	slog.Warn("Discord channel gone, removed its subscriptions",
		"channel_id", sub.ChannelID,
		"removed", removed)
	report.Removed += int(removed)
	return nil
}

var _ domain.Task = (*LiveTracker)(nil)
