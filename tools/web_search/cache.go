package web_search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careershift/careershift/tools/web_search/models"
	"github.com/redis/go-redis/v9"
)

// cacheClient is the slice of the redis client the cache needs. *redis.Client
// satisfies it.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// CachedSearcher wraps a WebSearcher with a Redis query cache. Identical
// queries within the TTL are answered from Redis without hitting the
// provider. Cache failures are ignored; the wrapped searcher is always the
// fallback.
type CachedSearcher struct {
	inner  WebSearcher
	client cacheClient
	ttl    time.Duration
}

func NewCachedSearcher(inner WebSearcher, addr, password string, db int, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &CachedSearcher{inner: inner, client: rdb, ttl: ttl}
}

func (c *CachedSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	key := fmt.Sprintf("websearch:%d:%s", k, q)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var cached []models.Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}

	out, err := c.inner.Discover(ctx, q, k)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		_ = c.client.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

func (c *CachedSearcher) Close() error { return c.client.Close() }
