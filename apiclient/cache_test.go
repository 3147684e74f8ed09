package apiclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		endpoint string
		params   map[string]string
		want     string
	}{
		{
			name:     "given no params, then key has empty param segment",
			method:   "get",
			endpoint: "/users",
			want:     "GET_/users_",
		},
		{
			name:     "given params, then key carries canonical JSON",
			method:   "GET",
			endpoint: "/users",
			params:   map[string]string{"id": "5"},
			want:     `GET_/users_{"id":"5"}`,
		},
		{
			name:     "given multiple params, then keys are sorted",
			method:   "GET",
			endpoint: "/search",
			params:   map[string]string{"q": "x", "a": "1"},
			want:     `GET_/search_{"a":"1","q":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CacheKey(tt.method, tt.endpoint, tt.params))
		})
	}
}

func TestCacheKey_DeterministicAcrossEqualParamSets(t *testing.T) {
	a := CacheKey("GET", "/items", map[string]string{"b": "2", "a": "1", "c": "3"})
	b := CacheKey("GET", "/items", map[string]string{"c": "3", "a": "1", "b": "2"})
	assert.Equal(t, a, b)
}

func TestMemoryCache_GetAfterSetWithinTTL(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	resp := &Response{Status: 200, Body: []byte(`{"ok":true}`), URL: "/users"}
	cache.Set(context.Background(), "k", resp)

	current = current.Add(59 * time.Second)
	got, ok := cache.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Same(t, resp, got)
}

func TestMemoryCache_ExpiredEntryIsEvictedOnRead(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set(context.Background(), "k", &Response{Status: 200})
	require.Equal(t, 1, cache.Len())

	current = current.Add(time.Minute)
	_, ok := cache.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "expired entry is evicted by the read")
}

func TestMemoryCache_SetOverwrites(t *testing.T) {
	cache := NewMemoryCache(time.Minute)

	cache.Set(context.Background(), "k", &Response{Status: 200})
	cache.Set(context.Background(), "k", &Response{Status: 201})

	got, ok := cache.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, 201, got.Status)
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	cache.Set(context.Background(), "a", &Response{Status: 200})
	cache.Set(context.Background(), "b", &Response{Status: 200})

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestNewMemoryCache_DefaultTTL(t *testing.T) {
	cache := NewMemoryCache(0)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)
}
