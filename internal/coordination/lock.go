// Package coordination guards tick execution across postpilot instances that
// share storage.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Acquire when another instance holds the lease.
var ErrLockHeld = errors.New("tick lock held by another instance")

// Release gives the lease back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker acquires the tick lease.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
	Describe() string
}

// Noop always succeeds; used by single-instance deployments.
type Noop struct{}

func (Noop) Acquire(context.Context) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

func (Noop) Describe() string { return "none" }

const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
else
	return 0
end`

// RedisLock is a lease taken with SET NX PX and released only by its owner.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	owned  bool
}

// OpenRedisLock connects to url and returns a lease on key.
func OpenRedisLock(ctx context.Context, url, key string, ttl time.Duration) (*RedisLock, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	lock := NewRedisLock(client, key, ttl)
	lock.owned = true
	return lock, nil
}

// NewRedisLock wraps an existing client.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lease or returns ErrLockHeld.
func (l *RedisLock) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", l.key, err)
		}
		return nil
	}, nil
}

// Ping checks Redis connectivity.
func (l *RedisLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLock) Describe() string {
	return fmt.Sprintf("redis %s key %s", l.client.Options().Addr, l.key)
}

// Close closes an owned client.
func (l *RedisLock) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
