package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mkravchenko/asynckit/internal/singleflight"
	"github.com/mkravchenko/asynckit/internal/util"
	"github.com/mkravchenko/asynckit/policy/lru"
)

// ErrNilLoader is returned by Get when the supplied loader is nil and no
// cached value exists to fall back on.
var ErrNilLoader = errorsNew("cache: nil loader")

// lightweight local errors.New to avoid importing std 'errors' everywhere
func errorsNew(s string) error { return &strErr{s} }

type strErr struct{ s string }

func (e *strErr) Error() string { return e.s }

// cache is a sharded keyed loading cache with a pluggable eviction policy.
// All methods are safe for concurrent use by multiple goroutines.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in Get.
	sf singleflight.Group[K, V]

	// load accounting (leader-side only, one bump per real load).
	loadOK   atomic.Int64
	loadFail atomic.Int64
	loadTime atomic.Int64 // cumulative, nanoseconds
}

// New constructs an AsyncCache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - nil Policy   -> LRU
//   - Shards <= 0  -> auto, rounded up to the next power of two
//
// If Options.Enabled is false, New returns a passthrough cache: Get always
// calls the loader, mutations are no-ops, and nothing is retained.
func New[K comparable, V any](opt Options[K, V]) AsyncCache[K, V] {
	if !opt.Enabled {
		return disabled[K, V]{}
	}
	if opt.MaxSize <= 0 {
		panic("cache: MaxSize must be > 0 when the cache is enabled")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}

	// number of shards -> power of two
	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	cs := make([]*shard[K, V], sh)
	perShardCap := (opt.MaxSize + sh - 1) / sh // split the bound evenly (ceil)
	for i := 0; i < sh; i++ {
		cs[i] = newShard[K, V](perShardCap, opt.Policy, opt)
	}

	return &cache[K, V]{
		shards: cs,
		hash:   util.Fnv64a[K], // fast non-crypto hash for sharding
		opt:    opt,
	}
}

// ---- AsyncCache[K,V] implementation ----

// Get returns the live value for key or resolves it via load, coalescing
// concurrent loads for the same key. A closed cache falls through to the
// loader on every call.
func (c *cache[K, V]) Get(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	if c.closed.Load() {
		if load == nil {
			var zero V
			return zero, ErrNilLoader
		}
		return load(ctx, key)
	}

	// fast path
	if v, ok := c.getShard(key).Get(key); ok {
		return v, nil
	}
	if load == nil {
		var zero V
		return zero, ErrNilLoader
	}

	// singleflight: exactly one in-flight load per key.
	return c.sf.Do(ctx, key, func(ctx context.Context) (V, error) {
		// Re-check after winning the flight: another caller's Put or load
		// may have landed between our miss and the flight starting.
		// Peek keeps the hit/miss counters honest (the miss was counted).
		if v, ok := c.getShard(key).Peek(key); ok {
			return v, nil
		}

		start := c.nowNano()
		v, err := load(ctx, key)
		elapsed := c.nowNano() - start

		if err != nil {
			c.loadFail.Add(1)
			c.loadTime.Add(elapsed)
			c.opt.Metrics.Load(time.Duration(elapsed), false)
			var zero V
			return zero, err
		}
		c.loadOK.Add(1)
		c.loadTime.Add(elapsed)
		c.opt.Metrics.Load(time.Duration(elapsed), true)

		c.getShard(key).Set(key, v, c.deadline())
		return v, nil
	})
}

// Put unconditionally stores key→value with a fresh TTL deadline.
func (c *cache[K, V]) Put(key K, value V) {
	if c.closed.Load() {
		return
	}
	c.getShard(key).Set(key, value, c.deadline())
}

// Invalidate removes key immediately. An in-flight load for key keeps
// running and may repopulate the entry when it completes.
func (c *cache[K, V]) Invalidate(key K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(key).Remove(key)
}

// InvalidateAll removes every entry across all shards.
func (c *cache[K, V]) InvalidateAll() {
	if c.closed.Load() {
		return
	}
	for _, s := range c.shards {
		s.Clear()
	}
}

// Len returns the total number of resident entries across all shards.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Stats aggregates the per-shard counters and the load accounting into a
// point-in-time snapshot.
func (c *cache[K, V]) Stats() Stats {
	st := Stats{Enabled: true}
	for _, s := range c.shards {
		h, m, e := s.Counters()
		st.Hits += uint64(h)
		st.Misses += uint64(m)
		st.Evictions += e
		st.Size += s.Len()
	}
	st.LoadSuccesses = uint64(c.loadOK.Load())
	st.LoadFailures = uint64(c.loadFail.Load())
	st.TotalLoadTime = time.Duration(c.loadTime.Load())
	return st
}

// Close marks the cache as closed. Gets fall through to the loader and
// mutations are ignored from then on.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the key and masking with len-1.
// len(c.shards) is guaranteed to be a power of two.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	h := c.hash(k)
	return c.shards[util.ShardIndex(h, len(c.shards))]
}

// deadline converts the cache TTL into an absolute UnixNano deadline.
// A non-positive TTL returns 0 (no expiration).
func (c *cache[K, V]) deadline() int64 {
	if c.opt.TTL <= 0 {
		return 0
	}
	return c.nowNano() + int64(c.opt.TTL)
}

func (c *cache[K, V]) nowNano() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// ---- disabled passthrough ----

// disabled is the cache returned when Options.Enabled is false. Every Get
// hits the loader directly and no state is retained between calls.
type disabled[K comparable, V any] struct{}

func (disabled[K, V]) Get(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	if load == nil {
		var zero V
		return zero, ErrNilLoader
	}
	return load(ctx, key)
}

func (disabled[K, V]) Put(K, V)          {}
func (disabled[K, V]) Invalidate(K) bool { return false }
func (disabled[K, V]) InvalidateAll()    {}
func (disabled[K, V]) Len() int          { return 0 }
func (disabled[K, V]) Stats() Stats      { return Stats{} }
func (disabled[K, V]) Close() error      { return nil }
