// Package middleware provides query interceptors for the client: result
// caches, slow-query logging, circuit breaking and trace field injection.
package middleware

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/corvids/surgo/core"
)

type ctxKey string

// cacheTTLKey carries the per-query cache TTL through the context.
const cacheTTLKey ctxKey = "surgo_cache_ttl"

// WithCacheTTL marks queries run under ctx as cacheable for d. A zero
// duration disables caching for the query even when a middleware default
// exists.
func WithCacheTTL(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey, d)
}

// cacheTTL resolves the effective TTL for a query, or false when the query
// must not be cached.
func cacheTTL(ctx context.Context, q *core.Query, def time.Duration) (time.Duration, bool) {
	if !q.Readonly() {
		return 0, false
	}
	v := ctx.Value(cacheTTLKey)
	if v == nil {
		return 0, false
	}
	ttl, ok := v.(time.Duration)
	if !ok {
		return 0, false
	}
	if ttl == 0 {
		return 0, false
	}
	if ttl < 0 {
		ttl = def
	}
	return ttl, true
}

// cacheKey derives a stable key from the statement and its bound variables.
func cacheKey(q *core.Query) string {
	vars, _ := json.Marshal(q.Vars())
	sum := md5.Sum(append([]byte(q.SurQL()), vars...))
	return "surgo:query:" + hex.EncodeToString(sum[:])
}
