package keyvalue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// Actions carried by pub/sub envelopes. Every publisher and subscriber in the
// fleet speaks this set; DecodePayload matches on it exhaustively.
const (
	ActionLiveStarted      = "live_started"
	ActionLiveEnded        = "live_ended"
	ActionNameCacheRebuilt = "name_cache_rebuilt"
)

// Envelope is the wire format for fan-out messages between bot processes.
type Envelope struct {
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// LiveStartedPayload announces a freshly posted notification message.
type LiveStartedPayload struct {
	SubscriptionID  string `json:"subscriptionId"`
	TwitchChannelID string `json:"twitchChannelId"`
	StreamID        string `json:"streamId"`
	MessageID       string `json:"messageId"`
}

// LiveEndedPayload announces a stream end observed by the reconciler.
type LiveEndedPayload struct {
	SubscriptionID  string `json:"subscriptionId"`
	TwitchChannelID string `json:"twitchChannelId"`
	StreamedForMs   int64  `json:"streamedForMs"`
}

// NameCacheRebuiltPayload announces a completed name cache rebuild.
type NameCacheRebuiltPayload struct {
	Entries int `json:"entries"`
}

// DecodePayload turns an envelope into its typed payload. Unknown actions are
// an error; senders and receivers must agree on the action set.
func DecodePayload(env Envelope) (any, error) {
	switch env.Action {
	case ActionLiveStarted:
		var p LiveStartedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Action, err)
		}
		return p, nil
	case ActionLiveEnded:
		var p LiveEndedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Action, err)
		}
		return p, nil
	case ActionNameCacheRebuilt:
		var p NameCacheRebuiltPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Action, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown envelope action %q", env.Action)
	}
}

// PubSub provides cross-process fan-out via Redis Pub/Sub.
type PubSub struct {
	rdb *redis.Client
}

// NewPubSub creates a PubSub on the shared client.
func NewPubSub(client *Client) *PubSub {
	return &PubSub{rdb: client.rdb}
}

// Publish wraps payload in an envelope and publishes it to channel.
func (ps *PubSub) Publish(ctx context.Context, channel, action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", action, err)
	}
	env := Envelope{
		Action:    action,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := ps.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", channel, err)
	}
	metrics.PubSubMessagesPublished.WithLabelValues(action).Inc()
	return nil
}

// Message is a received envelope together with the channel it arrived on.
type Message struct {
	Channel  string
	Envelope Envelope
}

// Subscription is an active pattern subscription. Messages arrive on Ch;
// malformed envelopes are logged and dropped.
type Subscription struct {
	sub    *redis.PubSub
	Ch     <-chan Message
	cancel context.CancelFunc
}

// Close unsubscribes and stops the delivery goroutine.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// Subscribe creates a pattern subscription (e.g. "twitchnotify:*"). Call
// Close on the returned subscription when done.
func (ps *PubSub) Subscribe(ctx context.Context, pattern string) *Subscription {
	sub := ps.rdb.PSubscribe(ctx, pattern)

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Message, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					slog.Warn("Dropping malformed pub/sub message",
						"channel", msg.Channel,
						"error", err)
					continue
				}
				metrics.PubSubMessagesReceived.WithLabelValues(env.Action).Inc()
				select {
				case ch <- Message{Channel: msg.Channel, Envelope: env}:
				default:
					// Drop if the receiver is slow.
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{
		sub:    sub,
		Ch:     ch,
		cancel: cancel,
	}
}
