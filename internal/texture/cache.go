package texture

import (
	"image"
	"sync"
)

// Cache is a concurrency-safe decode cache keyed by cleaned file path.
// It holds decoded pixels only, never per-document state.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img    *image.NRGBA
	format string
	err    error // decode failures are cached too
}

// NewCache creates an empty texture cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]*cacheEntry)}
}

// Load decodes path once and returns the cached result afterwards.
func (c *Cache) Load(path string) (*image.NRGBA, string, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.format, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, format, err := Decode(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.format, entry.err
	}
	c.items[path] = &cacheEntry{img: img, format: format, err: err}
	return img, format, err
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
