package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock keeps runs from overlapping across processes. It only saves
// work; the ledger's conditional updates keep overlapping runs correct.
type RunLock interface {
	// Acquire takes the lock for owner or returns ErrRunInProgress. The
	// returned function releases it.
	Acquire(ctx context.Context, owner string) (release func(context.Context) error, err error)
}

// NoLock lets every run proceed.
type NoLock struct{}

func (NoLock) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// ErrLockNotHeld is returned by a release after the lock expired or was
// taken over.
var ErrLockNotHeld = errors.New("run lock not held")

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLock is a RunLock on a single Redis key set with SET NX and a TTL.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLock creates a lock on key. The TTL must outlive a run so that a
// slow run does not lose the lock halfway.
func NewRedisLock(client redis.UniversalClient, key string, ttl time.Duration, logger *slog.Logger) *RedisLock {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.With("component", "reconciliation.lock", "key", key),
	}
}

func (l *RedisLock) Acquire(ctx context.Context, owner string) (func(context.Context) error, error) {
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.key).Result()
		l.logger.Debug("run lock busy", "holder", holder)
		return nil, fmt.Errorf("%w (held by %s)", ErrRunInProgress, holder)
	}
	l.logger.Debug("run lock acquired", "owner", owner)

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, owner).Int64()
		if err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		l.logger.Debug("run lock released", "owner", owner)
		return nil
	}, nil
}
