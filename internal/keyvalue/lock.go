package keyvalue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/byPixelTV/TwitchNotifyBot/internal/metrics"
)

// releaseScript deletes the lock key only while it still holds our token.
// Without the token check, a caller whose lock expired could release a lock
// that a different holder has since acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// WithLock runs fn while holding a distributed lock on key. It returns
// executed=false with a nil error when the lock is already held elsewhere; the
// critical section did not run. The lock auto-expires after ttl, so fn should
// finish well within it.
func (s *Store) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (executed bool, err error) {
	token := uuid.NewString()

	acquired, err := s.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		metrics.DistributedLockAcquisitions.WithLabelValues("error").Inc()
		return false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if !acquired {
		metrics.DistributedLockAcquisitions.WithLabelValues("contended").Inc()
		return false, nil
	}
	metrics.DistributedLockAcquisitions.WithLabelValues("acquired").Inc()

	defer func() {
		// Best effort: if the release fails the lock still expires via ttl.
		releaseErr := releaseScript.Run(ctx, s.rdb, []string{key}, token).Err()
		if releaseErr != nil && err == nil {
			err = fmt.Errorf("release lock %q: %w", key, releaseErr)
		}
	}()

	if err := fn(ctx); err != nil {
		return true, err
	}
	return true, nil
}
