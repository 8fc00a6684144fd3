package cache

import (
	"time"

	"github.com/chorus-insights/chorus/internal/llm"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds labels for the duration of the process. It backs single
// runs and the hot layer of LayeredCache.
type MemoryCache struct {
	labels *gocache.Cache
}

// NewMemoryCache creates a memory label cache. Entries expire after
// defaultTTL; expired entries are swept every cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		labels: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns a copy of the cached label for key, if present
func (c *MemoryCache) Get(key string) (*llm.QuoteLabel, bool) {
	v, found := c.labels.Get(key)
	if !found {
		return nil, false
	}
	label := v.(llm.QuoteLabel)
	return &label, true
}

// Set stores a copy of label under key. A zero ttl uses the default.
func (c *MemoryCache) Set(key string, label *llm.QuoteLabel, ttl time.Duration) error {
	c.labels.Set(key, *label, ttl)
	return nil
}

// Delete drops the label for key
func (c *MemoryCache) Delete(key string) error {
	c.labels.Delete(key)
	return nil
}

// Clear drops every cached label
func (c *MemoryCache) Clear() error {
	c.labels.Flush()
	return nil
}
