package cache

import (
	"context"

	"github.com/lexigraph/cachefront/keys"
)

// Invoker produces a value of type T on a cache miss. The bool return
// signals whether a value was found: return false to pass "not found"
// through without caching a zero value.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Exec is the read-through helper. It checks the cache for
// (query, params) first and returns the cached value on a hit. On a miss
// it calls invoke; a found result is written back and returned. A failed
// cache write is swallowed — the caller got their value, and losing the
// cache must never lose the result. Errors from invoke propagate
// unchanged.
//
// If ctx is cancelled after the miss but before invoke completes, invoke's
// error propagates and nothing is written: Set is a single complete call
// or nothing.
func Exec[T any](ctx context.Context, c *Cache, query string, params keys.KeyParams, invoke Invoker[T]) (T, bool, error) {
	var zero T

	if value, found, err := Get[T](ctx, c, query, params); err != nil || found {
		return value, found, err
	}

	result, ok, err := invoke(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}

	_, _ = c.Set(ctx, query, result, params)
	return result, true, nil
}
