package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/domain/upload"
)

const redisKeyPrefix = "image-upload:duplicate:"

// DefaultRedisTTL bounds how long a duplicate record outlives its credential.
const DefaultRedisTTL = 24 * time.Hour

type redisRecord struct {
	Key        string             `json:"key"`
	Tags       []upload.TagRecord `json:"tags"`
	DetectedAt time.Time          `json:"detected_at"`
}

// Redis stores duplicate records as JSON strings with a TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis parses url (redis://...) and returns a ledger using it.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opts), ttl), nil
}

func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Record(ctx context.Context, rec tagging.DuplicateRecord) error {
	raw, err := json.Marshal(redisRecord(rec))
	if err != nil {
		return fmt.Errorf("encode duplicate record: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+rec.Key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", rec.Key, err)
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, key string) (tagging.DuplicateRecord, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return tagging.DuplicateRecord{}, false, nil
	}
	if err != nil {
		return tagging.DuplicateRecord{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return tagging.DuplicateRecord{}, false, fmt.Errorf("decode duplicate record: %w", err)
	}
	return tagging.DuplicateRecord(rec), true, nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
