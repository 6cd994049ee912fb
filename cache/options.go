package cache

import (
	"time"

	"github.com/mkravchenko/asynckit/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy (e.g. LRU).
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access or trim).
	EvictTTL
)

// Metrics exposes cache-level observability hooks.
// NoopMetrics is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
	// Load reports one completed loader invocation and its duration.
	Load(d time.Duration, success bool)
}

// Clock provides time in UnixNano; useful for deterministic TTL tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache. Sane defaults are applied in New:
//   - nil Policy   => LRU
//   - Shards <= 0  => auto (rounded up to a power of two)
//   - nil Metrics  => NoopMetrics
type Options[K comparable, V any] struct {
	// Enabled turns the cache on. A disabled cache stores nothing: Get
	// calls the loader directly, mutations are no-ops, and Stats reports
	// the zero snapshot with Enabled=false.
	Enabled bool

	// MaxSize is the entry count bound. Required (> 0) when Enabled.
	// The bound is split across shards and enforced per shard, so the
	// global count converges to MaxSize over time rather than being exact
	// after every single operation.
	MaxSize int

	// TTL applies to every write (Put or loader store). Entries are never
	// returned once now >= write time + TTL, regardless of access pattern.
	// A non-positive TTL disables expiration.
	TTL time.Duration

	// Shards overrides the number of shards. If 0, an automatic value is
	// chosen (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int

	// Policy is the pluggable eviction policy; nil => LRU.
	Policy policy.Policy[K, V]

	// OnEvict is called on eviction under the shard lock; keep it light.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives hit/miss/evict/size/load signals.
	Metrics Metrics

	// Clock overrides the time source (tests). Nil => time.Now().
	Clock Clock
}
