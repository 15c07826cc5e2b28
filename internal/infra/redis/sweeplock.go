package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/batch-lifecycle/internal/lock"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLockKey = "batchlifecycle:sweep"
	defaultLockTTL = 30 * time.Second
)

// releaseScript deletes the lease only when the caller still owns it, so a
// slow instance cannot free a lease that already expired and was re-acquired.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ lock.SweepLock = (*RedisSweepLock)(nil)

// RedisSweepLock is a best-effort distributed lease over scheduler sweeps.
type RedisSweepLock struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
	token  func() string
}

func NewRedisSweepLock(client *goredis.Client, ttl time.Duration) (*RedisSweepLock, error) {
	return newRedisSweepLock(client, defaultLockKey, ttl, uuid.NewString)
}

func newRedisSweepLock(
	client *goredis.Client,
	key string,
	ttl time.Duration,
	tokenFn func() string,
) (*RedisSweepLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if tokenFn == nil {
		tokenFn = uuid.NewString
	}

	return &RedisSweepLock{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  tokenFn,
	}, nil
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context) (lock.Release, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, fmt.Errorf("sweep lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := l.token()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release sweep lock: %w", err)
		}
		return nil
	}

	return release, true, nil
}
