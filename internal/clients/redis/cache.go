package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DocumentCache stores opaque documents under a key prefix with a TTL.
type DocumentCache struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewDocumentCache(rdb goredis.UniversalClient, prefix string) *DocumentCache {
	if rdb == nil {
		return nil
	}
	return &DocumentCache{rdb: rdb, prefix: prefix}
}

// Get reports ok=false on a miss.
func (c *DocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *DocumentCache) Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, doc, ttl).Err()
}

func (c *DocumentCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
