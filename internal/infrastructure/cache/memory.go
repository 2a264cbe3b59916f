package cache

import (
	"context"
	"sync"
	"time"

	"github.com/smartshop/backend/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// entry is a single cached payload with its expiry
type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-memory offer cache with TTL support
type MemoryCache struct {
	data  map[string]entry
	mutex sync.RWMutex
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

var _ domain.OfferCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache and starts a janitor that evicts expired entries.
// A non-positive interval uses the default of ten minutes.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	c := &MemoryCache{
		data: make(map[string]entry),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go c.janitor(cleanupInterval)

	return c
}

// Get returns a copy of the cached payload or domain.ErrCacheMiss
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, domain.ErrCacheMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value for ttl. A non-positive ttl removes the key.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if ttl <= 0 {
		delete(c.data, key)
		return nil
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.data[key] = entry{value: stored, expiresAt: c.now().Add(ttl)}

	return nil
}

// Delete removes a key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Size returns the number of stored entries, expired ones included until evicted
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the janitor. Safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *MemoryCache) evictExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, key)
		}
	}
}
