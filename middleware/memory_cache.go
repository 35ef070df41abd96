package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/corvids/surgo/core"
)

// MemoryCacheMiddleware caches read-query results in memory. Enable it per
// query with WithCacheTTL on the context.
type MemoryCacheMiddleware struct {
	items      map[string]memoryCacheEntry
	mu         sync.RWMutex
	stopClean  chan struct{}
	DefaultTTL time.Duration
}

type memoryCacheEntry struct {
	Raw       []byte
	ExpiresAt time.Time
}

func NewMemoryCache(defaultTTL ...time.Duration) *MemoryCacheMiddleware {
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &MemoryCacheMiddleware{
		items:      make(map[string]memoryCacheEntry),
		stopClean:  make(chan struct{}),
		DefaultTTL: ttl,
	}
}

func (m *MemoryCacheMiddleware) Name() string {
	return "MemoryCache"
}

func (m *MemoryCacheMiddleware) Init(c *core.Client) error {
	go m.cleanupLoop()
	return nil
}

func (m *MemoryCacheMiddleware) Shutdown() error {
	close(m.stopClean)
	return nil
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, query, m.DefaultTTL)
	if !ok {
		return next(ctx, query)
	}

	key := cacheKey(query)
	m.mu.RLock()
	entry, hit := m.items[key]
	m.mu.RUnlock()
	if hit && time.Now().Before(entry.ExpiresAt) {
		return &core.Result{Raw: entry.Raw}, nil
	}

	res, err := next(ctx, query)
	if err != nil {
		return res, err
	}

	m.mu.Lock()
	m.items[key] = memoryCacheEntry{
		Raw:       res.Raw,
		ExpiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()
	return res, nil
}

func (m *MemoryCacheMiddleware) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryCacheMiddleware) cleanup() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.items {
		if now.After(v.ExpiresAt) {
			delete(m.items, k)
		}
	}
}
