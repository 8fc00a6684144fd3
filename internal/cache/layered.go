package cache

import (
	"time"

	"github.com/chorus-insights/chorus/internal/llm"
)

// LayeredCache fronts the disk cache with a memory layer so a run pays the
// disk read for any given label at most once
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory-over-disk label cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory first, then disk, promoting disk hits to memory
func (c *LayeredCache) Get(key string) (*llm.QuoteLabel, bool) {
	if label, found := c.memory.Get(key); found {
		return label, true
	}
	if label, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, label, 0)
		return label, true
	}
	return nil, false
}

// Set writes the label to both layers
func (c *LayeredCache) Set(key string, label *llm.QuoteLabel, ttl time.Duration) error {
	if err := c.memory.Set(key, label, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, label, ttl)
}

// Delete removes the label from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}
