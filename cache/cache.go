package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lexigraph/cachefront/keys"
	"github.com/lexigraph/cachefront/logger"
	"github.com/lexigraph/cachefront/store"
)

// ErrNotSerializable indicates a value msgpack cannot encode. The cache
// write is skipped; the caller's result is unaffected.
var ErrNotSerializable = errors.New("cache: value not serializable")

// Cache is the facade composed over the key codec, the store adapter and
// the TTL policy. Construct it with New, share it by reference across
// request handlers, and Close it at shutdown. It holds no global state.
type Cache struct {
	store    *store.Store
	policy   Policy
	log      logger.Logger
	counters counters
}

// New builds a facade over st. The policy decides entry lifetimes per
// namespace.
func New(st *store.Store, policy Policy, log logger.Logger) *Cache {
	return &Cache{
		store:  st,
		policy: policy,
		log:    log.With(map[string]interface{}{"component": "cache"}),
	}
}

// Enabled reports whether the backing store is currently usable.
func (c *Cache) Enabled() bool {
	return c.store.Available()
}

// Close releases the store's connection pool.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Get returns the encoded entry for (query, params), or found=false on a
// miss. An unavailable store also returns found=false — degradation, not
// failure — and does not count as a miss; only confirmed store-backed
// outcomes move the counters. The error is non-nil only for key contract
// violations.
func (c *Cache) Get(ctx context.Context, query string, params keys.KeyParams) ([]byte, bool, error) {
	key, err := keys.BuildKey(query, params)
	if err != nil {
		return nil, false, err
	}

	data, found, err := c.store.Read(ctx, key)
	if err != nil {
		c.log.Debug("get %s skipped: %v", key, err)
		return nil, false, nil
	}
	if found {
		c.counters.hit()
		c.log.Trace("hit %s", key)
		return data, true, nil
	}
	c.counters.miss()
	c.log.Trace("miss %s", key)
	return nil, false, nil
}

// Get unmarshals the entry for (query, params) into T. Deserialization
// failures are treated as a miss for a stale or foreign encoding, not an
// error: the caller recomputes and overwrites the entry.
func Get[T any](ctx context.Context, c *Cache, query string, params keys.KeyParams) (T, bool, error) {
	var zero T
	data, found, err := c.Get(ctx, query, params)
	if err != nil || !found {
		return zero, false, err
	}
	var result T
	if err := msgpack.Unmarshal(data, &result); err != nil {
		c.log.Warn("discarding undecodable entry for %q: %v", params.Namespace(), err)
		return zero, false, nil
	}
	return result, true, nil
}

// Set encodes value and writes it under the key for (query, params) with
// the namespace TTL. It reports false when the store is unavailable —
// callers treat that as a no-op and still return their result upstream.
// The error is non-nil only for caller mistakes: key contract violations
// or a value that cannot be encoded.
func (c *Cache) Set(ctx context.Context, query string, value any, params keys.KeyParams) (bool, error) {
	key, err := keys.BuildKey(query, params)
	if err != nil {
		return false, err
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return false, errors.Mark(err, ErrNotSerializable)
	}

	ttl := c.policy.TTL(params.Namespace())
	if err := c.store.Write(ctx, key, data, ttl); err != nil {
		c.log.Debug("set %s skipped: %v", key, err)
		return false, nil
	}
	c.log.Trace("set %s (ttl=%s)", key, ttl)
	return true, nil
}

// InvalidatePattern removes every entry whose key matches the glob
// pattern and returns the count removed. A pattern matching nothing
// returns 0. An unavailable store returns the partial count with no
// error. An empty pattern is a caller error.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	deleted, err := c.store.DeleteMatching(ctx, pattern)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			c.log.Debug("invalidate %q skipped: %v", pattern, err)
			return deleted, nil
		}
		return deleted, err
	}
	c.log.Info("invalidated %d entries matching %q", deleted, pattern)
	return deleted, nil
}

// ClearAll removes every entry regardless of namespace and returns the
// count removed. Destructive: deliberately a distinct operation from
// InvalidatePattern so operators can gate it separately.
func (c *Cache) ClearAll(ctx context.Context) (int, error) {
	deleted, err := c.store.DeleteAll(ctx)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			c.log.Debug("clear skipped: %v", err)
			return deleted, nil
		}
		return deleted, err
	}
	c.log.Info("cleared all %d cache entries", deleted)
	return deleted, nil
}

// Stats reports the process-local hit/miss counters alongside live store
// figures. While the store is unavailable, Enabled is false and the store
// figures are zero; the counters are still reported.
func (c *Cache) Stats(ctx context.Context) Stats {
	hits, misses := c.counters.snapshot()
	st := Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
	storeStats, err := c.store.Stats(ctx)
	if err != nil {
		return st
	}
	st.Enabled = true
	st.TotalKeys = storeStats.Keys
	st.MemoryUsed = storeStats.MemoryUsed
	st.MemoryPeak = storeStats.MemoryPeak
	return st
}
