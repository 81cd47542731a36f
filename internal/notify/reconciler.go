package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
	"github.com/byPixelTV/TwitchNotifyBot/internal/keyvalue"
	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// MessageReconciler is the periodic task that keeps posted notification
// messages in sync with reality: live messages get refreshed embeds, ended
// streams get their offline treatment, and rows whose Discord side has
// vanished are cleaned up.
type MessageReconciler struct {
	subs      domain.SubscriptionStore
	sessions  domain.LiveSessionStore
	chat      domain.ChatPlatform
	streaming domain.StreamingPlatform
	pubsub    EventPublisher
	channel   string
	clock     clockwork.Clock
}

func NewMessageReconciler(
	subs domain.SubscriptionStore,
	sessions domain.LiveSessionStore,
	chat domain.ChatPlatform,
	streaming domain.StreamingPlatform,
	pubsub EventPublisher,
	channel string,
	clock clockwork.Clock,
) *MessageReconciler {
	return &MessageReconciler{
		subs:      subs,
		sessions:  sessions,
		chat:      chat,
		streaming: streaming,
		pubsub:    pubsub,
		channel:   channel,
		clock:     clock,
	}
}

func (r *MessageReconciler) Name() string { return "message_reconciler" }

// RunOnce reconciles every live session row. A failure on one row is counted
// and the pass moves on so a single bad message cannot stall the rest.
func (r *MessageReconciler) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	var report domain.CycleReport

	sessions, err := r.sessions.ListAll(ctx)
	if err != nil {
		return report, err
	}

	for _, session := range sessions {
		report.Examined++
		if err := r.reconcile(ctx, session, &report); err != nil {
			slog.Warn("Reconciliation failed for session",
				"subscription_id", session.LinkedSubscriptionID,
				"message_id", session.MessageID,
				"error", err)
			report.Errors++
		}
	}
	return report, nil
}

func (r *MessageReconciler) reconcile(ctx context.Context, session domain.LiveSession, report *domain.CycleReport) error {
	// Channel gone means the message is gone too; only the row remains.
	if _, ok, err := r.chat.GetChannel(ctx, session.ChannelID); err != nil {
		return err
	} else if !ok {
		if err := r.sessions.DeleteByMessageID(ctx, session.MessageID); err != nil {
			return err
		}
		report.Removed++
		metrics.LiveSessionsRemoved.Inc()
		slog.Warn("Dropped session for deleted channel",
			"channel_id", session.ChannelID,
			"message_id", session.MessageID)
		return nil
	}

	users, err := r.streaming.GetUsersByIDs(ctx, []string{session.TwitchChannelID})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		// The Twitch account no longer resolves. The message can never be
		// kept current, so take it down with the row.
		return r.remove(ctx, session, report, true)
	}
	user := users[0]

	streams, err := r.streaming.GetStreamsByUserIDs(ctx, []string{session.TwitchChannelID})
	if err != nil {
		return err
	}

	sub, subExists, err := r.subs.FindBySubscriptionID(ctx, session.LinkedSubscriptionID)
	if err != nil {
		return err
	}
	if !subExists {
		// Orphaned row: the subscription was deleted while the stream ran.
		return r.remove(ctx, session, report, true)
	}

	if len(streams) > 0 {
		return r.refreshLive(ctx, session, *sub, user, streams[0], report)
	}
	return r.finishEnded(ctx, session, *sub, user, report)
}

// refreshLive updates a still-live message in place, reposting it under a new
// id when the edit target is unreachable.
func (r *MessageReconciler) refreshLive(ctx context.Context, session domain.LiveSession, sub domain.Subscription, user domain.StreamUser, stream domain.Stream, report *domain.CycleReport) error {
	var mention *domain.Role
	if sub.MentionRoleID != nil {
		role, ok, err := r.chat.GetRole(ctx, sub.GuildID, *sub.MentionRoleID)
		if err != nil {
			slog.Warn("Mention role lookup failed, refreshing without mention",
				"subscription_id", session.LinkedSubscriptionID,
				"role_id", *sub.MentionRoleID,
				"error", err)
		} else if ok {
			mention = role
		}
	}

	payload := LivePayload(stream, user, mention, r.clock.Now())
	if err := r.chat.EditMessage(ctx, session.ChannelID, session.MessageID, payload); err == nil {
		report.Edited++
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("Edit failed, reposting notification",
			"message_id", session.MessageID,
			"error", err)
	}

	// The old message is unusable. Post a replacement and swap the row so
	// the session keeps its identity.
	messageID, err := r.chat.PostMessage(ctx, session.ChannelID, payload)
	if err != nil {
		return err
	}
	replacement := session
	replacement.MessageID = messageID
	if err := r.sessions.ReplaceByMessageID(ctx, session.MessageID, replacement); err != nil {
		return err
	}
	report.Recreated++
	metrics.MessagesRecreated.Inc()
	slog.Info("Recreated live notification",
		"subscription_id", session.LinkedSubscriptionID,
		"old_message_id", session.MessageID,
		"new_message_id", messageID)
	return nil
}

// finishEnded handles a session whose stream has stopped: either the message
// is deleted outright or it is edited into its offline form, and in both
// cases the row goes away.
func (r *MessageReconciler) finishEnded(ctx context.Context, session domain.LiveSession, sub domain.Subscription, user domain.StreamUser, report *domain.CycleReport) error {
	if sub.DeleteOnEnd {
		return r.remove(ctx, session, report, true)
	}

	payload := OfflinePayload(user, session.StartedAt, r.clock.Now())
	if err := r.chat.EditMessage(ctx, session.ChannelID, session.MessageID, payload); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("Offline edit failed, posting final message instead",
				"message_id", session.MessageID,
				"error", err)
		}
		if _, err := r.chat.PostMessage(ctx, session.ChannelID, payload); err != nil {
			return err
		}
	}
	return r.remove(ctx, session, report, false)
}

// remove deletes the session row, optionally taking the Discord message with
// it. Message deletion is best effort; the row always goes.
func (r *MessageReconciler) remove(ctx context.Context, session domain.LiveSession, report *domain.CycleReport, deleteMessage bool) error {
	if deleteMessage {
		if err := r.chat.DeleteMessage(ctx, session.ChannelID, session.MessageID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("Failed to delete notification message",
				"message_id", session.MessageID,
				"error", err)
		}
	}
	if err := r.sessions.DeleteByMessageID(ctx, session.MessageID); err != nil {
		return err
	}
	report.Removed++
	metrics.LiveSessionsRemoved.Inc()

	if r.pubsub != nil {
		streamedFor := r.clock.Now().UnixMilli() - session.StartedAt
		if err := r.pubsub.Publish(ctx, r.channel, keyvalue.ActionLiveEnded, keyvalue.LiveEndedPayload{
			SubscriptionID:  session.LinkedSubscriptionID,
			TwitchChannelID: session.TwitchChannelID,
			StreamedForMs:   streamedFor,
		}); err != nil {
			slog.Warn("Failed to announce live end", "error", err)
		}
	}
	return nil
}

var _ domain.Task = (*MessageReconciler)(nil)
