// Package mongostore implements the document-store interfaces on MongoDB.
// Mongo is the durable source of truth for subscriptions and live sessions;
// the Redis side is a rebuildable cache on top of it.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	databaseName = "twitch_notify"

	subscriptionsCollection = "twitch_notify_entries"
	liveSessionsCollection  = "twitch_notify_live_entries"
	nameCacheCollection     = "twitch_name_cache"
)

// Connect opens a Mongo client with short timeouts so a slow server degrades
// a single cycle instead of wedging a loop.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(2 * time.Second).
		SetServerSelectionTimeout(2 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

func collection(client *mongo.Client, name string) *mongo.Collection {
	return client.Database(databaseName).Collection(name)
}

// HealthChecker adapts the Mongo client to the one-method ping surface the
// readiness probe wants.
type HealthChecker struct {
	client *mongo.Client
}

func NewHealthChecker(client *mongo.Client) *HealthChecker {
	return &HealthChecker{client: client}
}

func (h *HealthChecker) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}
