package cache

import "time"

// LayeredCache checks the memory layer first and promotes store hits into it
type LayeredCache struct {
	memory Cache
	store  Cache
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memory, store Cache) *LayeredCache {
	return &LayeredCache{
		memory: memory,
		store:  store,
	}
}

// Get retrieves a value from the cache (memory first, then store)
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.store.Get(key); found {
		_ = c.memory.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.store.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.store.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.store.Clear()
}
