package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/schemabuilder/pkg/store"
)

// The holder is the key's value; expiry is the key's PTTL.
var (
	tryLockScript = redis.NewScript(`
		local cur = redis.call("GET", KEYS[1])
		if cur and cur ~= ARGV[1] then
			return 0
		end
		redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
		return 1
	`)

	extendScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) ~= ARGV[1] then
			return 0
		end
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	`)

	unlockScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)
)

// Locker implements store.Locker with one key per lock.
type Locker struct {
	client *redis.Client
}

var _ store.Locker = (*Locker)(nil)

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

func lockKey(name string) string {
	return keyPrefix + "lock:" + name
}

func (l *Locker) TryLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	n, err := tryLockScript.Run(ctx, l.client, []string{lockKey(name)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to take lock %q: %w", name, err)
	}
	return n == 1, nil
}

func (l *Locker) Extend(ctx context.Context, name, holder string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{lockKey(name)}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lock %q: %w", name, err)
	}
	if n != 1 {
		return fmt.Errorf("lock %q: %w", name, store.ErrLockLost)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context, name, holder string) error {
	if err := unlockScript.Run(ctx, l.client, []string{lockKey(name)}, holder).Err(); err != nil {
		return fmt.Errorf("failed to unlock %q: %w", name, err)
	}
	return nil
}

// Holder reads the owner and remaining TTL in one round trip.
func (l *Locker) Holder(ctx context.Context, name string) (*store.RunLock, error) {
	key := lockKey(name)
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := l.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lock %q: %w", name, err)
	}
	return &store.RunLock{
		Name:      name,
		Holder:    get.Val(),
		ExpiresAt: time.Now().Add(pttl.Val()).UTC(),
	}, nil
}
