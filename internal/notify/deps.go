package notify

import (
	"context"
	"time"

	"github.com/byPixelTV/TwitchNotifyBot/internal/keyvalue"
)

// KeyValue is the slice of the Redis store the notify components use. The
// production implementation is keyvalue.Store; tests substitute an in-memory
// fake.
type KeyValue interface {
	HashGet(ctx context.Context, name, field string) (string, bool, error)
	HashSet(ctx context.Context, name, field, value string) error
	HashSetAll(ctx context.Context, name string, fields map[string]string) error
	DeleteHash(ctx context.Context, name string) error
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// EventPublisher fans lifecycle events out to the rest of the fleet. A nil
// publisher disables fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, channel, action string, payload any) error
}

var (
	_ KeyValue       = (*keyvalue.Store)(nil)
	_ EventPublisher = (*keyvalue.PubSub)(nil)
)
