// Package policy defines the contracts between a cache shard and its
// pluggable eviction policy.
package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
// The value pointer allows in-place updates without re-linking the node.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
}

// Hooks expose O(1) list operations a policy uses to manipulate the shard's
// intrusive MRU/LRU list. The shard provides the implementation.
//
// Concurrency: all hook calls happen under the shard lock. Hooks manage only
// the list; the shard owns the key->node map.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at MRU (used on admission).
	PushFront(Node[K, V])
	// Remove detaches the node from the list (map bookkeeping stays with the shard).
	Remove(Node[K, V])
	// Back returns the current LRU node (or nil if empty).
	Back() Node[K, V]
	// Len returns the number of resident nodes in the shard.
	Len() int
}

// ShardPolicy is a per-shard policy instance bound to that shard's hooks.
// All methods are invoked under the shard lock.
//
// OnAdd may return an eviction candidate; the shard evicts it and then calls
// OnRemove for it. OnGet/OnUpdate typically promote the node. OnRemove is a
// notification so a policy can maintain internal state; the shard performs
// the actual deletion.
type ShardPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V]) (evict Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
}

// Policy is a factory that creates shard-local policy instances bound to a
// particular shard's hooks.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) ShardPolicy[K, V]
}
