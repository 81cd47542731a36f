package mongostore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// SubscriptionStore implements domain.SubscriptionStore on MongoDB.
type SubscriptionStore struct {
	coll *mongo.Collection
}

// NewSubscriptionStore creates a SubscriptionStore from the shared client.
func NewSubscriptionStore(client *mongo.Client) *SubscriptionStore {
	return &SubscriptionStore{coll: collection(client, subscriptionsCollection)}
}

func (s *SubscriptionStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find subscriptions: %w", err)
	}
	var subs []domain.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SubscriptionStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Subscription, bool, error) {
	var sub domain.Subscription
	err := s.coll.FindOne(ctx, bson.D{{Key: "notifyId", Value: subscriptionID}}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find subscription %q: %w", subscriptionID, err)
	}
	return &sub, true, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, sub domain.Subscription) error {
	if _, err := s.coll.InsertOne(ctx, sub); err != nil {
		return fmt.Errorf("insert subscription %q: %w", sub.SubscriptionID, err)
	}
	return nil
}

// CreateWithNewID assigns a fresh collision-checked subscription id and
// inserts the record. The returned id is also written back into sub's
// SubscriptionID field of the stored document.
func (s *SubscriptionStore) CreateWithNewID(ctx context.Context, sub domain.Subscription) (string, error) {
	for {
		id, err := randomCode(8)
		if err != nil {
			return "", err
		}
		_, exists, err := s.FindBySubscriptionID(ctx, id)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		sub.SubscriptionID = id
		if err := s.Create(ctx, sub); err != nil {
			return "", err
		}
		return id, nil
	}
}

func (s *SubscriptionStore) DeleteBySubscriptionID(ctx context.Context, subscriptionID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "notifyId", Value: subscriptionID}}); err != nil {
		return fmt.Errorf("delete subscription %q: %w", subscriptionID, err)
	}
	return nil
}

func (s *SubscriptionStore) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "channelId", Value: channelID}})
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions for channel %q: %w", channelID, err)
	}
	return res.DeletedCount, nil
}

func (s *SubscriptionStore) DistinctTwitchChannelIDs(ctx context.Context) ([]string, error) {
	raw, err := s.coll.Distinct(ctx, "twitchChannelId", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct twitch channel ids: %w", err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate random code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
