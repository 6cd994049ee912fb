// Package lru implements the least-recently-used eviction policy.
package lru

import "github.com/mkravchenko/asynckit/policy"

// lru is a classic "move-to-front" policy. It delegates all list
// manipulation to the policy.Hooks supplied by the shard.
type lru[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type lruPolicy[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard LRU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return lruPolicy[K, V]{} }

// New implements policy.Policy by binding shard hooks.
func (lruPolicy[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &lru[K, V]{h: h}
}

// OnAdd places the new entry at MRU. LRU never proposes evictions itself;
// the shard trims to capacity after admission.
func (p *lru[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnGet promotes the entry to MRU.
func (p *lru[K, V]) OnGet(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry to MRU (updates count as recent use).
func (p *lru[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnRemove is a no-op for pure LRU.
func (p *lru[K, V]) OnRemove(_ policy.Node[K, V]) {}
