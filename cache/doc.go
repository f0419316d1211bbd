// Package cache is the read-through caching facade in front of the
// expensive upstream operations (LLM generation, semantic search, article
// lookups). Callers check the cache before performing the expensive
// operation and write the result back afterward; the facade never performs
// the operation itself.
//
// # Control flow
//
// [Cache.Get] builds a deterministic key from the query and its typed
// parameters (see the keys package), reads through the store adapter and
// counts the hit or miss. On a miss the caller computes the result and
// calls [Cache.Set], which resolves the namespace TTL from the [Policy]
// and writes the msgpack-encoded value. [Exec] combines the two for
// callers that want the lookup-compute-store cycle in one call.
//
// # Graceful degradation
//
// The guiding principle is that losing the cache must never lose the
// product. When the backing store is unreachable, Get returns absent, Set
// reports failure, invalidation reports zero deletions and Stats reports
// Enabled=false — none of them return an error for an environmental
// failure. The store adapter's availability machine decides when to stop
// trying and when to probe for recovery; this package just respects it.
//
// Errors are reserved for programming mistakes: an unrecognized namespace,
// a blank query, a parameter value containing the key delimiter, or a
// value msgpack cannot encode. Those surface immediately so they get fixed
// at development time.
//
// # Concurrency
//
// All operations are safe under arbitrary interleaving from concurrent
// callers. Hit/miss counters are atomic. No application-level locking is
// used for cache consistency; the store's per-key atomicity is relied
// upon. Pattern invalidation racing a concurrent Set may leave the
// just-written key either deleted or surviving; that is accepted behavior,
// not a bug.
package cache
