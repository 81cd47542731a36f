package notify

import (
	"context"
	"log/slog"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
	"github.com/byPixelTV/TwitchNotifyBot/internal/keyvalue"
	"github.com/byPixelTV/TwitchNotifyBot/internal/logging"
	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

const (
	nameCacheHash = "twitch_name_cache" // twitch channel id -> display name
	idCacheHash   = "twitch_id_cache"   // lowercased login -> twitch channel id

	// userBatchSize is the Helix per-request cap for user lookups.
	userBatchSize = 100
)

// NameCache resolves Twitch channel ids to display names. Reads hit the Redis
// hash first and fall back to the Twitch API; the document store is the
// durable copy, loaded into the hash once at startup via Warm. Every
// successful API resolution is written back to both layers so the next lookup
// stays local.
type NameCache struct {
	kv        KeyValue
	docs      domain.NameCacheStore
	subs      domain.SubscriptionStore
	streaming domain.StreamingPlatform
	pubsub    EventPublisher
	channel   string
}

// NewNameCache wires a NameCache. pubsub may be nil if fan-out is not wanted,
// in which case rebuild events are simply not announced.
func NewNameCache(kv KeyValue, docs domain.NameCacheStore, subs domain.SubscriptionStore, streaming domain.StreamingPlatform, pubsub EventPublisher, channel string) *NameCache {
	return &NameCache{
		kv:        kv,
		docs:      docs,
		subs:      subs,
		streaming: streaming,
		pubsub:    pubsub,
		channel:   channel,
	}
}

// Resolve returns the display name for a Twitch channel id. Misses at every
// layer return ok=false with a nil error; only infrastructure failures
// produce an error.
func (n *NameCache) Resolve(ctx context.Context, twitchChannelID string) (string, bool, error) {
	name, ok, err := n.kv.HashGet(ctx, nameCacheHash, twitchChannelID)
	if err != nil {
		return "", false, err
	}
	if ok {
		return name, true, nil
	}

	users, err := n.streaming.GetUsersByIDs(ctx, []string{twitchChannelID})
	if err != nil {
		return "", false, err
	}
	if len(users) == 0 {
		return "", false, nil
	}
	user := users[0]
	log := logging.WithTwitchChannel(twitchChannelID)

	if err := n.kv.HashSet(ctx, nameCacheHash, twitchChannelID, user.DisplayName); err != nil {
		log.Warn("Failed to cache resolved display name", "error", err)
	}
	if err := n.kv.HashSet(ctx, idCacheHash, user.Login, user.ID); err != nil {
		log.Warn("Failed to cache resolved channel id",
			"login", user.Login,
			"error", err)
	}
	if err := n.docs.Upsert(ctx, domain.NameCacheEntry{
		TwitchChannelID: twitchChannelID,
		DisplayName:     user.DisplayName,
	}); err != nil {
		log.Warn("Failed to persist resolved display name", "error", err)
	}
	return user.DisplayName, true, nil
}

// ResolveID returns the Twitch channel id for a login name, using the reverse
// hash with an API fallback.
func (n *NameCache) ResolveID(ctx context.Context, login string) (string, bool, error) {
	id, ok, err := n.kv.HashGet(ctx, idCacheHash, login)
	if err != nil {
		return "", false, err
	}
	if ok {
		return id, true, nil
	}

	users, err := n.streaming.GetUsersByLogins(ctx, []string{login})
	if err != nil {
		return "", false, err
	}
	if len(users) == 0 {
		return "", false, nil
	}
	user := users[0]

	if err := n.kv.HashSet(ctx, idCacheHash, login, user.ID); err != nil {
		slog.Warn("Failed to cache resolved channel id",
			"login", login,
			"error", err)
	}
	if err := n.kv.HashSet(ctx, nameCacheHash, user.ID, user.DisplayName); err != nil {
		slog.Warn("Failed to cache resolved display name",
			"twitch_channel_id", user.ID,
			"error", err)
	}
	return user.ID, true, nil
}

// NameCacheRebuild is the periodic task that regenerates the name cache from
// the current set of subscriptions.
type NameCacheRebuild struct {
	cache *NameCache
}

func NewNameCacheRebuild(cache *NameCache) *NameCacheRebuild {
	return &NameCacheRebuild{cache: cache}
}

func (t *NameCacheRebuild) Name() string { return "name_cache_rebuild" }

// RunOnce fetches every distinct subscribed channel id from the document
// store, resolves all of them against the Twitch API in batches, and replaces
// both the durable and the Redis copies of the cache. A failed batch is
// logged and skipped so one bad request cannot starve the rest of the
// rebuild.
func (t *NameCacheRebuild) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	var report domain.CycleReport
	n := t.cache

	ids, err := n.subs.DistinctTwitchChannelIDs(ctx)
	if err != nil {
		return report, err
	}
	report.Examined = len(ids)

	entries := make([]domain.NameCacheEntry, 0, len(ids))
	names := make(map[string]string, len(ids))
	logins := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += userBatchSize {
		end := start + userBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		users, err := n.streaming.GetUsersByIDs(ctx, ids[start:end])
		if err != nil {
			slog.Warn("Name cache rebuild batch failed",
				"from", start,
				"to", end,
				"error", err)
			report.Errors++
			continue
		}
		for _, u := range users {
			entries = append(entries, domain.NameCacheEntry{
				TwitchChannelID: u.ID,
				DisplayName:     u.DisplayName,
			})
			names[u.ID] = u.DisplayName
			logins[u.Login] = u.ID
		}
	}

	if err := n.docs.ReplaceAll(ctx, entries); err != nil {
		return report, err
	}
	if err := n.rewriteHash(ctx, nameCacheHash, names); err != nil {
		return report, err
	}
	if err := n.rewriteHash(ctx, idCacheHash, logins); err != nil {
		return report, err
	}
	report.Edited = len(entries)
	metrics.NameCacheRebuildSize.Set(float64(len(entries)))

	if n.pubsub != nil {
		if err := n.pubsub.Publish(ctx, n.channel, keyvalue.ActionNameCacheRebuilt,
			keyvalue.NameCacheRebuiltPayload{Entries: len(entries)}); err != nil {
			slog.Warn("Failed to announce name cache rebuild", "error", err)
		}
	}
	return report, nil
}

func (n *NameCache) rewriteHash(ctx context.Context, name string, fields map[string]string) error {
	if err := n.kv.DeleteHash(ctx, name); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return n.kv.HashSetAll(ctx, name, fields)
}

// Warm loads the durable cache into Redis at startup so the first tracker
// cycle does not have to go to the API for known channels.
func (n *NameCache) Warm(ctx context.Context) error {
	entries, err := n.docs.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	fields := make(map[string]string, len(entries))
	for _, e := range entries {
		fields[e.TwitchChannelID] = e.DisplayName
	}
	if err := n.kv.HashSetAll(ctx, nameCacheHash, fields); err != nil {
		return err
	}
	slog.Debug("Warmed name cache from document store", "entries", len(entries))
	return nil
}

var _ domain.Task = (*NameCacheRebuild)(nil)
