package cache

// node is an intrusive doubly linked list element owned by a shard.
// It stores the key/value alongside list links and the TTL deadline.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]

	// Absolute expiration deadline in UnixNano. Zero means "no TTL".
	exp int64
}

// Key returns the node key (part of the policy.Node contract).
func (n *node[K, V]) Key() K { return n.key }

// Value returns a pointer to the stored value (part of policy.Node).
// Callers must only touch the pointee while holding the shard lock.
func (n *node[K, V]) Value() *V { return &n.val }
