package apiclient

import (
	"context"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Cache stores successful responses keyed by CacheKey. Only GET calls with
// UseCache set consult the cache, and only successful responses are stored.
//
// Implementations must make per-key reads and writes atomic so a reader
// never observes a half-written entry.
type Cache interface {
	// Get returns the cached response for key, or false when absent or
	// expired.
	Get(ctx context.Context, key string) (*Response, bool)

	// Set stores resp under key, unconditionally overwriting any previous
	// entry.
	Set(ctx context.Context, key string, resp *Response)
}

// CacheKey derives the deterministic cache key for a call:
// upper(method) + endpoint + canonical JSON of params. Map keys are
// serialized in sorted order, so two equal parameter sets always produce
// the same key.
func CacheKey(method, endpoint string, params map[string]string) string {
	var paramStr string
	if len(params) > 0 {
		raw, err := json.Marshal(params)
		if err == nil {
			paramStr = string(raw)
		}
	}
	return strings.ToUpper(method) + "_" + endpoint + "_" + paramStr
}

// DefaultCacheTTL is the entry lifetime used when none is configured.
const DefaultCacheTTL = 5 * time.Minute

type memoryCacheEntry struct {
	response *Response
	storedAt time.Time
}

// MemoryCache is an in-process TTL cache. Entries expire lazily: an expired
// entry is evicted by the Get call that observes it.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryCacheEntry

	now func() time.Time
}

// NewMemoryCache creates a MemoryCache with the given TTL, defaulting to
// DefaultCacheTTL when ttl is not positive.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.response, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{
		response: resp,
		storedAt: c.now(),
	}
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been evicted by a read.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryCacheEntry)
}
