package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
)

const redisKeyPrefix = "identity:profile:"

// Redis caches identity records in Redis with TTL-based eviction. Keys use the
// hashed subject so raw identifiers never appear in the keyspace.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed identity cache.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Name() string { return "redis" }

func (c *Redis) Get(ctx context.Context, subject string) (*identity.Record, error) {
	data, err := c.client.Get(ctx, key(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrCacheMiss
		}
		return nil, fmt.Errorf("find identity cache: %w", err)
	}

	var rec identity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode identity cache: %w", err)
	}
	return &rec, nil
}

func (c *Redis) Set(ctx context.Context, subject string, record *identity.Record) error {
	if record == nil {
		return fmt.Errorf("identity record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode identity cache: %w", err)
	}
	if err := c.client.Set(ctx, key(subject), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("save identity cache: %w", err)
	}
	return nil
}

func key(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}
