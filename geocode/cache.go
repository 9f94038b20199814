package geocode

import "sync"

// MemoryCache is the default address cache: an append-only map that lives for
// the process lifetime.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.entries[key]
	return addr, ok
}

func (c *MemoryCache) Put(key, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = address
}

// Len reports the number of cached addresses.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
