package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corvids/surgo/core"
)

// RedisCacheMiddleware caches read-query results in Redis. Enable it per
// query with WithCacheTTL on the context.
type RedisCacheMiddleware struct {
	Client     *redis.Client
	DefaultTTL time.Duration
}

func NewRedisCache(opt *redis.Options, defaultTTL ...time.Duration) *RedisCacheMiddleware {
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &RedisCacheMiddleware{
		Client:     redis.NewClient(opt),
		DefaultTTL: ttl,
	}
}

func (m *RedisCacheMiddleware) Name() string {
	return "RedisCache"
}

func (m *RedisCacheMiddleware) Init(c *core.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	return m.Client.Close()
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, query, m.DefaultTTL)
	if !ok {
		return next(ctx, query)
	}

	key := cacheKey(query)
	if raw, err := m.Client.Get(ctx, key).Bytes(); err == nil {
		return &core.Result{Raw: raw}, nil
	}

	res, err := next(ctx, query)
	if err != nil {
		return res, err
	}

	if len(res.Raw) > 0 {
		// Cache write failures are not the query's problem.
		_ = m.Client.Set(ctx, key, []byte(res.Raw), ttl).Err()
	}
	return res, nil
}
