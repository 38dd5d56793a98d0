package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireSweepLock attempts to acquire the lock for one sweep pass. The key
// names the day and the pass. Returns true if the lock was acquired, false
// if another run already holds it, so overlapping sweeps cannot double-send
// a day's notifications.
func (s *LockStore) AcquireSweepLock(ctx context.Context, passKey string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:sweep:%s", passKey)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseSweepLock releases the lock for one sweep pass.
func (s *LockStore) ReleaseSweepLock(ctx context.Context, passKey string) error {
	key := fmt.Sprintf("lock:sweep:%s", passKey)

	return s.client.Del(ctx, key).Err()
}
