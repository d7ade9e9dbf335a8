package embedding

import (
	"context"
	"sync"
	"time"

	"recall-backend/application/ports"
)

// CachedProvider memoizes embeddings by input text. Search embeds the same
// query text on every request that lacks a caller-supplied vector, so a short
// TTL cache removes most provider round-trips without risking staleness.
type CachedProvider struct {
	inner ports.EmbeddingProvider
	ttl   time.Duration
	stop  chan struct{}

	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	vector    []float32
	expiresAt time.Time
}

// NewCachedProvider wraps an embedding provider with a TTL cache
func NewCachedProvider(inner ports.EmbeddingProvider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &CachedProvider{
		inner: inner,
		ttl:   ttl,
		stop:  make(chan struct{}),
		items: make(map[string]cacheItem),
	}
	go c.cleanupExpired()
	return c
}

// Close stops the background eviction loop
func (c *CachedProvider) Close() {
	close(c.stop)
}

// Embed returns a cached vector when one is fresh, otherwise delegates
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.RLock()
	item, ok := c.items[text]
	c.mu.RUnlock()
	if ok && time.Now().Before(item.expiresAt) {
		return item.vector, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[text] = cacheItem{vector: vector, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return vector, nil
}

// cleanupExpired evicts stale entries until Close
func (c *CachedProvider) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
