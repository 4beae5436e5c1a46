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

// AcquireCommitLock attempts to acquire the commit lock for the given user,
// so two concurrent commit requests cannot both persist the same session
// buffer. Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireCommitLock(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:commit:%s", userID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseCommitLock releases the commit lock for the given user.
func (s *LockStore) ReleaseCommitLock(ctx context.Context, userID string) error {
	key := fmt.Sprintf("lock:commit:%s", userID)

	return s.client.Del(ctx, key).Err()
}
