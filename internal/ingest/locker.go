package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Unlock releases a lock acquired through a Locker.
type Unlock func(ctx context.Context) error

// Locker provides non-blocking mutual exclusion keyed by string.
type Locker interface {
	// TryLock acquires key if it is free. acquired is false when another holder has it.
	TryLock(ctx context.Context, key string) (unlock Unlock, acquired bool, err error)
}

// KeyedLocker is an in-process Locker.
type KeyedLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyedLocker returns an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{held: make(map[string]struct{})}
}

// TryLock implements Locker.
func (l *KeyedLocker) TryLock(_ context.Context, key string) (Unlock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, true, nil
}

const (
	// DefaultLockTTL bounds how long a crashed holder can block a source.
	DefaultLockTTL = 2 * time.Minute

	redisKeyPrefix = "reader:ingest:lock:"
)

// ErrLockNotHeld is returned by a Redis unlock whose token no longer owns the key.
var ErrLockNotHeld = errors.New("lock not held")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a Locker shared by every process using the same Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker returns a RedisLocker whose locks expire after ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// TryLock implements Locker with SET NX PX and a random token.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (Unlock, bool, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		// Compare-and-delete so an expired lock taken over by another run is left alone.
		result, runErr := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		if runErr != nil {
			return fmt.Errorf("failed to release lock: %w", runErr)
		}
		if result == 0 {
			return ErrLockNotHeld
		}
		return nil
	}, true, nil
}
