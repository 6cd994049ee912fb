package cache

import "context"

// Loader resolves the value for a key when the cache misses. The cache
// imposes no timeout of its own; the loader owns its time bound via ctx.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// AsyncCache is a keyed loading cache. All methods are safe for concurrent
// use by multiple goroutines; coordination is per key, so a slow load for
// one key never blocks access to another.
//
// Typical complexity for bookkeeping operations is amortized O(1):
// a map lookup plus constant-time list adjustments under a shard lock.
type AsyncCache[K comparable, V any] interface {
	// Get returns the live cached value for key, or resolves it via load.
	// Concurrent Gets for the same key share a single load invocation
	// (single-flight). A load failure is returned to every waiter and is
	// never cached; the next Get starts a fresh attempt.
	Get(ctx context.Context, key K, load Loader[K, V]) (V, error)

	// Put unconditionally stores key→value with a fresh TTL deadline,
	// bypassing the loader.
	Put(key K, value V)

	// Invalidate removes key immediately and reports whether it was present.
	// An in-flight load for key is unaffected and may repopulate the entry.
	Invalidate(key K) bool

	// InvalidateAll removes every entry immediately.
	InvalidateAll()

	// Len returns the total number of resident entries across all shards.
	Len() int

	// Stats returns a snapshot of the access and load counters.
	Stats() Stats

	// Close marks the cache closed; subsequent Gets fall through to the
	// loader and mutations are ignored.
	Close() error
}
