package imagegen

import (
	"sync"
	"time"
)

// Cache holds the PNG for the most recent ViewModel so repeated device polls
// within one refresh interval do not re-render.
type Cache struct {
	mu   sync.RWMutex
	key  time.Time
	data []byte
}

// Get returns the cached PNG if it was rendered for key.
func (c *Cache) Get(key time.Time) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || !c.key.Equal(key) {
		return nil, false
	}
	return c.data, true
}

// Set stores data as the render for key.
func (c *Cache) Set(key time.Time, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = key
	c.data = data
}
