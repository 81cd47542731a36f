package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// NameCacheStore implements domain.NameCacheStore on MongoDB. The collection
// is fully derived state and is dropped and rewritten on every rebuild.
type NameCacheStore struct {
	coll *mongo.Collection
}

// NewNameCacheStore creates a NameCacheStore from the shared client.
func NewNameCacheStore(client *mongo.Client) *NameCacheStore {
	return &NameCacheStore{coll: collection(client, nameCacheCollection)}
}

func (s *NameCacheStore) ListAll(ctx context.Context) ([]domain.NameCacheEntry, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find name cache entries: %w", err)
	}
	var entries []domain.NameCacheEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode name cache entries: %w", err)
	}
	return entries, nil
}

func (s *NameCacheStore) Upsert(ctx context.Context, entry domain.NameCacheEntry) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "twitchChannelId", Value: entry.TwitchChannelID}},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert name cache entry %q: %w", entry.TwitchChannelID, err)
	}
	return nil
}

func (s *NameCacheStore) ReplaceAll(ctx context.Context, entries []domain.NameCacheEntry) error {
	if err := s.coll.Drop(ctx); err != nil {
		return fmt.Errorf("drop name cache collection: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("bulk insert name cache entries: %w", err)
	}
	return nil
}
