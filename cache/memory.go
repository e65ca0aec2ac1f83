package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	id        string
	expiresAt time.Time
}

// MemoryCache is an in-memory cache bounded to maxSize entries. When full it
// evicts an expired entry if there is one, otherwise the least recently used
// entry (EnableLRU) or the oldest inserted one.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front is next to evict
	maxSize   int
	enableLRU bool
	cleanup   *time.Ticker
	stop      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxSize int, cleanupInterval time.Duration, enableLRU bool) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	cache := &MemoryCache{
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		maxSize:   maxSize,
		enableLRU: enableLRU,
		cleanup:   time.NewTicker(cleanupInterval),
		stop:      make(chan struct{}),
		now:       time.Now,
	}

	go cache.cleanupExpired()

	return cache
}

// IsProcessed checks if a delivery has been processed
func (c *MemoryCache) IsProcessed(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[id]
	if !exists {
		return false, nil
	}

	if c.now().After(elem.Value.(*memoryEntry).expiresAt) {
		c.remove(elem)
		return false, nil
	}

	if c.enableLRU {
		c.order.MoveToBack(elem)
	}

	return true, nil
}

// MarkProcessed marks a delivery as processed
func (c *MemoryCache) MarkProcessed(ctx context.Context, id string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)

	if elem, exists := c.entries[id]; exists {
		elem.Value.(*memoryEntry).expiresAt = expiresAt
		c.order.MoveToBack(elem)
		return nil
	}

	if len(c.entries) >= c.maxSize {
		c.evictOne()
	}

	c.entries[id] = c.order.PushBack(&memoryEntry{id: id, expiresAt: expiresAt})

	return nil
}

// Len returns the number of entries held, expired or not
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close closes the cache and releases resources
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		c.cleanup.Stop()
		close(c.stop)

		c.mu.Lock()
		c.entries = make(map[string]*list.Element)
		c.order.Init()
		c.mu.Unlock()
	})

	return nil
}

// cleanupExpired periodically removes expired entries
func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, elem := range c.entries {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			c.remove(elem)
		}
	}
}

// evictOne drops one entry, preferring an expired one. Caller holds mu.
func (c *MemoryCache) evictOne() {
	now := c.now()
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			c.remove(elem)
			return
		}
	}
	if front := c.order.Front(); front != nil {
		c.remove(front)
	}
}

func (c *MemoryCache) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, elem.Value.(*memoryEntry).id)
}
