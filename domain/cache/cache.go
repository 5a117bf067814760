package cache

import (
	"sync"
	"time"
)

// Cache is a concurrent TTL cache used for process-local pool and route
// state.
type Cache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
}

type cacheItem struct {
	value      interface{}
	storedAt   time.Time
	expiration time.Time
}

const NoExpirationTTL time.Duration = 0

// New creates a new concurrent cache.
func New() *Cache {
	return &Cache{
		data: make(map[string]cacheItem),
	}
}

// Set adds an item to the cache with a specified key, value, and expiration time.
func (c *Cache) Set(key string, value interface{}, expiration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expirationTime := time.Time{}
	if expiration != NoExpirationTTL {
		expirationTime = now.Add(expiration)
	}
	c.data[key] = cacheItem{
		value:      value,
		storedAt:   now,
		expiration: expirationTime,
	}
}

// Get retrieves the value associated with a key from the cache.
func (c *Cache) Get(key string) (interface{}, bool) {
	value, _, ok := c.GetWithAge(key)
	return value, ok
}

// GetWithAge retrieves the value together with its age. The age drives
// refresh-ahead decisions of callers layering soft expiry on top of the
// hard TTL enforced here.
func (c *Cache) GetWithAge(key string) (interface{}, time.Duration, bool) {
	c.mutex.RLock()

	item, exists := c.data[key]
	if !exists {
		c.mutex.RUnlock()
		return nil, 0, false
	}

	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		// Unlock before locking again
		c.mutex.RUnlock()

		// Acquire write mutex.
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, 0, false
	}

	c.mutex.RUnlock()

	return item.value, time.Since(item.storedAt), true
}

// Delete removes an item from the cache.
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

// Len returns the number of stored entries, including expired ones not yet
// evicted by reads.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.data)
}
