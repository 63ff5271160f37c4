package waitlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tripstock/internal/shared/errs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when a queue lock could not be taken in time.
var ErrLockBusy = fmt.Errorf("%w: waitlist is being processed", errs.ErrTransientConflict)

// UnlockFunc releases a lock taken by Locker.Lock
type UnlockFunc func(ctx context.Context) error

// Locker serializes queue mutations of one capacity record across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// Lua script releasing the lock only while it still carries our token
const luaCompareAndDelete = `
-- KEYS[1] = lock key
-- ARGV[1] = owner token
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var compareAndDelete = redis.NewScript(luaCompareAndDelete)

// RedisLocker takes locks with SET NX PX and releases them with a compare-and-delete script.
type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
}

// NewRedisLocker creates a locker whose locks expire after ttl and whose
// callers give up after wait.
func NewRedisLocker(redisClient *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &RedisLocker{redis: redisClient, ttl: ttl, wait: wait, poll: 20 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take waitlist lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release(ctx, key, token)
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// release runs the script by SHA and falls back to EVAL when Redis has not cached it.
func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	err := compareAndDelete.Run(ctx, l.redis, []string{key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release waitlist lock: %w", err)
	}
	return nil
}

// PreloadScripts loads the release script into Redis
func (l *RedisLocker) PreloadScripts(ctx context.Context) error {
	if err := compareAndDelete.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to load waitlist lock script: %w", err)
	}
	return nil
}

// LocalLocker serializes within one process. Used when Redis is disabled.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}
