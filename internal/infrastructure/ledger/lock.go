package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/janhq/image-upload/internal/domain/tagging"
)

const lockKeyPrefix = "image-upload:lock:"

// RedisLocker hands out one redsync mutex per lock name so replicas sharing a Redis
// never enrich the same object twice.
type RedisLocker struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
}

func NewRedisLocker(url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisLockerWithClient(redis.NewClient(opts)), nil
}

func NewRedisLockerWithClient(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, rs: redsync.New(goredis.NewPool(client))}
}

// TryLock makes a single attempt. A lock held by someone else is tagging.ErrLocked.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	mutex := l.rs.NewMutex(lockKeyPrefix+name, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, tagging.ErrLocked
		}
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	return func() {
		// An expired lock needs no release.
		_, _ = mutex.UnlockContext(context.Background())
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
