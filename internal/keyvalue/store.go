package keyvalue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store exposes key/hash/list primitives over Redis. Every operation on a
// named resource acquires a per-name reader-writer lock before touching the
// remote store, so concurrent writers to the same logical resource never
// interleave while different resources proceed fully concurrently.
//
// Absence and failure are distinct outcomes: lookups return ok=false with a
// nil error for a true miss, and a non-nil error when the remote call failed.
type Store struct {
	rdb *redis.Client

	mu        sync.Mutex
	keyLocks  map[string]*sync.RWMutex
	hashLocks map[string]*sync.RWMutex
	listLocks map[string]*sync.RWMutex
}

// NewStore creates a Store on top of the shared client.
func NewStore(client *Client) *Store {
	return &Store{
		rdb:       client.rdb,
		keyLocks:  make(map[string]*sync.RWMutex),
		hashLocks: make(map[string]*sync.RWMutex),
		listLocks: make(map[string]*sync.RWMutex),
	}
}

// lockFor returns the lock for a resource name, creating it on first access.
// Locks are never evicted; the map grows with the number of distinct resource
// names touched over the process lifetime.
func (s *Store) lockFor(m map[string]*sync.RWMutex, name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := m[name]
	if !ok {
		l = &sync.RWMutex{}
		m[name] = l
	}
	return l
}

func (s *Store) keyLock(key string) *sync.RWMutex   { return s.lockFor(s.keyLocks, key) }
func (s *Store) hashLock(name string) *sync.RWMutex { return s.lockFor(s.hashLocks, name) }
func (s *Store) listLock(name string) *sync.RWMutex { return s.lockFor(s.listLocks, name) }

// --- String keys ---

// GetString returns the value stored at key.
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	l := s.keyLock(key)
	l.RLock()
	defer l.RUnlock()

	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return val, true, nil
}

// SetString stores value at key. A zero ttl means no expiry.
func (s *Store) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// DeleteString removes key.
func (s *Store) DeleteString(ctx context.Context, key string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	l := s.keyLock(key)
	l.RLock()
	defer l.RUnlock()

	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return n > 0, nil
}

// ExpireKey sets a TTL on an existing key.
func (s *Store) ExpireKey(ctx context.Context, key string, ttl time.Duration) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %q: %w", key, err)
	}
	return nil
}

// --- Hashes ---

// HashGet returns the value of a single hash field.
func (s *Store) HashGet(ctx context.Context, name, field string) (string, bool, error) {
	l := s.hashLock(name)
	l.RLock()
	defer l.RUnlock()

	val, err := s.rdb.HGet(ctx, name, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %q %q: %w", name, field, err)
	}
	return val, true, nil
}

// HashSet writes a single hash field.
func (s *Store) HashSet(ctx context.Context, name, field, value string) error {
	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.HSet(ctx, name, field, value).Err(); err != nil {
		return fmt.Errorf("hset %q %q: %w", name, field, err)
	}
	return nil
}

// HashSetWithTTL writes a single hash field and gives it a per-field expiry.
func (s *Store) HashSetWithTTL(ctx context.Context, name, field, value string, ttl time.Duration) error {
	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.HSet(ctx, name, field, value).Err(); err != nil {
		return fmt.Errorf("hset %q %q: %w", name, field, err)
	}
	if err := s.rdb.HExpire(ctx, name, ttl, field).Err(); err != nil {
		return fmt.Errorf("hexpire %q %q: %w", name, field, err)
	}
	return nil
}

// HashSetAll writes all fields from the given map in one round trip. A nil or
// empty map is a no-op.
func (s *Store) HashSetAll(ctx context.Context, name string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.HSet(ctx, name, fields).Err(); err != nil {
		return fmt.Errorf("hset %q: %w", name, err)
	}
	return nil
}

// HashDelete removes the given fields from a hash.
func (s *Store) HashDelete(ctx context.Context, name string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.HDel(ctx, name, fields...).Err(); err != nil {
		return fmt.Errorf("hdel %q: %w", name, err)
	}
	return nil
}

// HashDeleteByValue removes every field whose value equals the given value.
func (s *Store) HashDeleteByValue(ctx context.Context, name, value string) error {
	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	pairs, err := s.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return fmt.Errorf("hgetall %q: %w", name, err)
	}
	for field, v := range pairs {
		if v != value {
			continue
		}
		if err := s.rdb.HDel(ctx, name, field).Err(); err != nil {
			return fmt.Errorf("hdel %q %q: %w", name, field, err)
		}
	}
	return nil
}

// DeleteHash removes a whole hash.
func (s *Store) DeleteHash(ctx context.Context, name string) error {
	l := s.hashLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.Del(ctx, name).Err(); err != nil {
		return fmt.Errorf("del %q: %w", name, err)
	}
	return nil
}

// HashFields returns all field names of a hash.
func (s *Store) HashFields(ctx context.Context, name string) ([]string, error) {
	l := s.hashLock(name)
	l.RLock()
	defer l.RUnlock()

	fields, err := s.rdb.HKeys(ctx, name).Result()
	if err != nil {
		return nil, fmt.Errorf("hkeys %q: %w", name, err)
	}
	return fields, nil
}

// HashValues returns all values of a hash.
func (s *Store) HashValues(ctx context.Context, name string) ([]string, error) {
	l := s.hashLock(name)
	l.RLock()
	defer l.RUnlock()

	vals, err := s.rdb.HVals(ctx, name).Result()
	if err != nil {
		return nil, fmt.Errorf("hvals %q: %w", name, err)
	}
	return vals, nil
}

// HashPairs returns all field/value pairs of a hash.
func (s *Store) HashPairs(ctx context.Context, name string) (map[string]string, error) {
	l := s.hashLock(name)
	l.RLock()
	defer l.RUnlock()

	pairs, err := s.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %q: %w", name, err)
	}
	return pairs, nil
}

// HashPair is a single field/value entry.
type HashPair struct {
	Field string
	Value string
}

// HashPairsSorted returns all pairs of a hash ordered by field name.
func (s *Store) HashPairsSorted(ctx context.Context, name string) ([]HashPair, error) {
	pairs, err := s.HashPairs(ctx, name)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(pairs))
	for f := range pairs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]HashPair, 0, len(fields))
	for _, f := range fields {
		out = append(out, HashPair{Field: f, Value: pairs[f]})
	}
	return out, nil
}

// HashFieldByValue returns the first field whose value equals the given value.
func (s *Store) HashFieldByValue(ctx context.Context, name, value string) (string, bool, error) {
	l := s.hashLock(name)
	l.RLock()
	defer l.RUnlock()

	pairs, err := s.rdb.HGetAll(ctx, name).Result()
	if err != nil {
		return "", false, fmt.Errorf("hgetall %q: %w", name, err)
	}
	for field, v := range pairs {
		if v == value {
			return field, true, nil
		}
	}
	return "", false, nil
}

// --- Lists ---

// ListPush appends values to the tail of a list.
func (s *Store) ListPush(ctx context.Context, name string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	l := s.listLock(name)
	l.Lock()
	defer l.Unlock()

	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.rdb.RPush(ctx, name, args...).Err(); err != nil {
		return fmt.Errorf("rpush %q: %w", name, err)
	}
	return nil
}

// ListRange returns the full contents of a list.
func (s *Store) ListRange(ctx context.Context, name string) ([]string, error) {
	l := s.listLock(name)
	l.RLock()
	defer l.RUnlock()

	vals, err := s.rdb.LRange(ctx, name, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %q: %w", name, err)
	}
	return vals, nil
}

// ListRemoveByValue removes every occurrence of value from a list.
func (s *Store) ListRemoveByValue(ctx context.Context, name, value string) error {
	l := s.listLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.LRem(ctx, name, 0, value).Err(); err != nil {
		return fmt.Errorf("lrem %q: %w", name, err)
	}
	return nil
}

// ListRemoveByIndex removes the element at index. Redis lists have no direct
// remove-by-index, so the element is overwritten with a unique tombstone that
// is then removed by value.
func (s *Store) ListRemoveByIndex(ctx context.Context, name string, index int64) error {
	l := s.listLock(name)
	l.Lock()
	defer l.Unlock()

	length, err := s.rdb.LLen(ctx, name).Result()
	if err != nil {
		return fmt.Errorf("llen %q: %w", name, err)
	}
	if index < 0 || index >= length {
		return fmt.Errorf("list %q: index %d out of range (len %d)", name, index, length)
	}

	tombstone := uuid.NewString()
	if err := s.rdb.LSet(ctx, name, index, tombstone).Err(); err != nil {
		return fmt.Errorf("lset %q: %w", name, err)
	}
	if err := s.rdb.LRem(ctx, name, 0, tombstone).Err(); err != nil {
		return fmt.Errorf("lrem %q: %w", name, err)
	}
	return nil
}

// ListSet overwrites the element at index.
func (s *Store) ListSet(ctx context.Context, name string, index int64, value string) error {
	l := s.listLock(name)
	l.Lock()
	defer l.Unlock()

	length, err := s.rdb.LLen(ctx, name).Result()
	if err != nil {
		return fmt.Errorf("llen %q: %w", name, err)
	}
	if index < 0 || index >= length {
		return fmt.Errorf("list %q: index %d out of range (len %d)", name, index, length)
	}

	if err := s.rdb.LSet(ctx, name, index, value).Err(); err != nil {
		return fmt.Errorf("lset %q: %w", name, err)
	}
	return nil
}

// DeleteList removes a whole list.
func (s *Store) DeleteList(ctx context.Context, name string) error {
	l := s.listLock(name)
	l.Lock()
	defer l.Unlock()

	if err := s.rdb.Del(ctx, name).Err(); err != nil {
		return fmt.Errorf("del %q: %w", name, err)
	}
	return nil
}
