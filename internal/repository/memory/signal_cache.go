package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SignalCache remembers settlement signals that were already applied so
// gateway redeliveries are answered without touching the database.
type SignalCache struct {
	cache *cache.Cache
}

func NewSignalCache(ttl time.Duration) *SignalCache {
	return &SignalCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (c *SignalCache) Remember(key string) {
	c.cache.Set(key, struct{}{}, cache.DefaultExpiration)
}

func (c *SignalCache) Seen(key string) bool {
	_, found := c.cache.Get(key)
	return found
}
