package apiclient

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis, for sharing cached responses
// across client instances or processes. Expiry is enforced server-side via
// the key TTL instead of lazily on read.
//
// Usage:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
//	    Addrs: []string{"localhost:6379"},
//	})
//	client := apiclient.New(
//	    apiclient.WithCache(apiclient.NewRedisCache(rdb, 5*time.Minute)),
//	)
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a RedisCache with the given TTL, defaulting to
// DefaultCacheTTL when ttl is not positive.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "apiclient:cache:",
	}
}

// Get implements Cache. A Redis error is treated as a miss so a degraded
// cache never fails the call.
func (c *RedisCache) Get(ctx context.Context, key string) (*Response, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set implements Cache. Serialization or write errors are dropped; the
// response has already been delivered to the caller by the time it is
// stored.
func (c *RedisCache) Set(ctx context.Context, key string, resp *Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, c.ttl)
}

var _ Cache = (*RedisCache)(nil)
