package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a process-local key value cache with per-entry expiration.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, expiration time.Duration)
	Delete(key string)
}

type inMemoryCache struct {
	cache *gocache.Cache
}

// NewInMemoryCache returns a cache with a 12h default TTL. Entries are
// advisory; callers must tolerate misses.
func NewInMemoryCache() Cache {
	return &inMemoryCache{
		cache: gocache.New(12*time.Hour, 30*time.Minute),
	}
}

func (c *inMemoryCache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *inMemoryCache) Set(key string, value interface{}, expiration time.Duration) {
	c.cache.Set(key, value, expiration)
}

func (c *inMemoryCache) Delete(key string) {
	c.cache.Delete(key)
}
