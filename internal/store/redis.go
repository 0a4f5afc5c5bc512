package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// syncLockKey guards sync passes: cron ticks and HTTP triggers share the
// lock so at most one pass runs at a time.
const syncLockKey = "samscout:sync:lock"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RunLock serialises sync passes across triggers. The TTL bounds how long
// a crashed holder can block the next pass.
type RunLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRunLock returns a RunLock with the given expiry.
func NewRunLock(rdb *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{rdb: rdb, ttl: ttl}
}

// Acquire attempts to take the lock. Returns false when another pass holds
// it.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, syncLockKey, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock.
func (l *RunLock) Release(ctx context.Context) error {
	if err := l.rdb.Del(ctx, syncLockKey).Err(); err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}
