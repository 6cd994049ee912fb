// Package cache provides a generic, sharded, keyed loading cache with
// single-flight load coalescing, write-time TTL expiry, LRU eviction, and
// observable statistics.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by a
//     mutex. The default shard count is chosen by a heuristic
//     (≈ 2*GOMAXPROCS, power of two). Shard locks guard only map/list
//     bookkeeping; a loader never runs under a lock, so a slow load for one
//     key never blocks access to another.
//
//   - Loading: Get takes the loader at the call site. On a miss, exactly
//     one loader invocation runs per key at any instant; concurrent callers
//     for the same key attach to the in-flight load and share its result.
//     A failed load is returned to every waiter, is never cached, and the
//     key is immediately eligible for a fresh attempt.
//
//   - TTL: every write (Put or loader store) stamps an absolute deadline of
//     now + TTL. An entry is never returned once its deadline has passed,
//     regardless of access pattern; expiry is lazy on read and also applied
//     while a shard trims to capacity.
//
//   - Eviction: the entry bound (MaxSize) is split evenly across shards and
//     each shard trims its own LRU tail, so the global count converges to
//     the bound over time rather than being exact after every operation.
//     The policy seam (package policy) is pluggable; LRU is the default.
//
//   - Disabled mode: with Options.Enabled false the cache stores nothing:
//     Get calls the loader directly, mutations are no-ops, and Stats
//     reports the zero snapshot with Enabled=false.
//
//   - Statistics: Stats() snapshots hits, misses, load successes/failures,
//     cumulative load time, evictions, and size. Options.Metrics receives
//     the same signals live; plug the Prometheus adapter to export them.
//
// Basic usage
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Enabled: true,
//	    MaxSize: 10_000,
//	    TTL:     5 * time.Minute,
//	})
//	v, err := c.Get(ctx, "tenant-42", func(ctx context.Context, k string) (string, error) {
//	    return fetchSecret(ctx, k) // e.g. remote secret store
//	})
//
// Bypassing the loader
//
//	c.Put("tenant-42", "rotated-value") // fresh TTL, no loader call
//	c.Invalidate("tenant-42")           // removed immediately
//
// Statistics
//
//	st := c.Stats()
//	fmt.Printf("hit rate %.2f after %d accesses\n", st.HitRate(), st.Hits+st.Misses)
//
// Thread-safety & complexity
//
// All methods on AsyncCache are safe for concurrent use. Bookkeeping is
// O(1) expected time: one map access plus constant pointer fixes. Eviction
// work is O(1) per removed item.
package cache
