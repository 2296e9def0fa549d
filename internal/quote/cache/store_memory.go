package cache

import (
	"context"
	"sync"
	"time"

	"loanbroker/internal/emi"
	"loanbroker/pkg/platform/sentinel"
)

type entry struct {
	result    emi.Result
	expiresAt time.Time
}

// InMemoryCache is a TTL map bounded by maxEntries. When full, expired
// entries are swept; if none are expired the write is dropped.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

func NewInMemory(maxEntries int) *InMemoryCache {
	return &InMemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (emi.Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return emi.Result{}, sentinel.ErrNotFound
	}
	return e.result, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, result emi.Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxEntries {
			return nil
		}
	}
	c.entries[key] = entry{result: result, expiresAt: now.Add(ttl)}
	return nil
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
