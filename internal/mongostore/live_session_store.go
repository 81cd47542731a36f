package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// LiveSessionStore implements domain.LiveSessionStore on MongoDB.
type LiveSessionStore struct {
	coll *mongo.Collection
}

// NewLiveSessionStore creates a LiveSessionStore from the shared client.
func NewLiveSessionStore(client *mongo.Client) *LiveSessionStore {
	return &LiveSessionStore{coll: collection(client, liveSessionsCollection)}
}

func (s *LiveSessionStore) ListAll(ctx context.Context) ([]domain.LiveSession, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find live sessions: %w", err)
	}
	var sessions []domain.LiveSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode live sessions: %w", err)
	}
	return sessions, nil
}

func (s *LiveSessionStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.LiveSession, bool, error) {
	var session domain.LiveSession
	err := s.coll.FindOne(ctx, bson.D{{Key: "linkedNotifyId", Value: subscriptionID}}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find live session for %q: %w", subscriptionID, err)
	}
	return &session, true, nil
}

func (s *LiveSessionStore) Insert(ctx context.Context, session domain.LiveSession) error {
	if _, err := s.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("insert live session %q: %w", session.MessageID, err)
	}
	return nil
}

func (s *LiveSessionStore) DeleteByMessageID(ctx context.Context, messageID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "messageId", Value: messageID}}); err != nil {
		return fmt.Errorf("delete live session %q: %w", messageID, err)
	}
	return nil
}

func (s *LiveSessionStore) ReplaceByMessageID(ctx context.Context, messageID string, session domain.LiveSession) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "messageId", Value: messageID}},
		session,
		options.Replace().SetUpsert(false),
	)
	if err != nil {
		return fmt.Errorf("replace live session %q: %w", messageID, err)
	}
	return nil
}
