// Package pagecache stores rendered report bodies in Redis keyed by route path.
package pagecache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/hoa-scout/internal/redisx"
)

const (
	keyPrefix  = "page:"
	DefaultTTL = 10 * time.Minute
)

// ReportPath is the route path of an HOA's report page.
func ReportPath(hoaID string) string { return "/hoa/" + hoaID }

// Cache is safe to use as a nil pointer, in which case every lookup misses
// and writes are dropped.
type Cache struct {
	rdb *redisx.Client
	ttl time.Duration
}

func New(rdb *redisx.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	b, err := c.rdb.Get(ctx, keyPrefix+path)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Cache) Set(ctx context.Context, path string, body []byte) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, keyPrefix+path, body, c.ttl)
}

// Invalidate drops the cached body for path.
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, keyPrefix+path)
}
