package dashboard

import (
	"sync"
	"time"
)

// Cache holds the single most recent ViewModel. There is no per-viewer
// variation in the fetched data, so one slot is enough.
type Cache struct {
	mu        sync.RWMutex
	now       func() time.Time
	vm        *ViewModel
	expiresAt time.Time
}

// NewCache creates an empty cache reading time from now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now}
}

// Get returns the cached ViewModel if it has not expired.
func (c *Cache) Get() (*ViewModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.vm == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	return c.vm, true
}

// Set replaces the cached entry. It stays valid until vm.GeneratedAt + ttl.
func (c *Cache) Set(vm *ViewModel, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vm = vm
	c.expiresAt = vm.GeneratedAt.Add(ttl)
}

// Peek returns the last stored ViewModel regardless of expiry.
func (c *Cache) Peek() *ViewModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vm
}
