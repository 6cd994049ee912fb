package cache

import (
	"sync"
	"time"

	"github.com/mkravchenko/asynckit/internal/util"
	"github.com/mkravchenko/asynckit/policy"
)

// shard is an independent partition of the cache with its own lock, map,
// and an intrusive doubly linked list (head=MRU, tail=LRU).
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.RWMutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int         // number of resident entries
	cap  int         // per-shard entry capacity

	// Policy and options (policy uses hooks to manipulate the list).
	pol policy.ShardPolicy[K, V]
	opt Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// newShard initializes a shard with a per-shard capacity, policy factory,
// and options.
func newShard[K comparable, V any](capacity int, pol policy.Policy[K, V], opt Options[K, V]) *shard[K, V] {
	s := &shard[K, V]{
		m:   make(map[K]*node[K, V], capacity),
		cap: capacity,
		opt: opt,
	}
	h := shardHooks[K, V]{s: s}
	s.pol = pol.New(h)
	return s
}

// Set inserts or updates an entry and promotes it according to the policy.
// exp is an absolute UnixNano deadline (0 = no TTL).
func (s *shard[K, V]) Set(k K, v V, exp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		// In-place update with a fresh deadline, then promote.
		n.val = v
		n.exp = exp
		s.pol.OnUpdate(n)
		s.enforceLimitsLocked()
		return
	}

	n := &node[K, V]{key: k, val: v, exp: exp}
	s.m[k] = n

	// Let the policy place the node (and optionally suggest an eviction).
	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictPolicy)
	}
	s.enforceLimitsLocked()
}

// Get returns the value and promotes the entry according to the policy.
// An expired entry is evicted and reported as a miss.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if s.expiredLocked(n) {
		s.evictNode(n, EvictTTL)
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.pol.OnGet(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Peek returns a live value without touching counters or promoting the
// entry. Used by the load path to re-check after joining a flight; the
// caller already accounted for its own hit or miss.
func (s *shard[K, V]) Peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok || s.expiredLocked(n) {
		var zero V
		return zero, false
	}
	return n.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
// Explicit removal is not counted as an eviction.
func (s *shard[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, k)
	return true
}

// Clear drops every entry in the shard. Like Remove, clearing is not
// counted as eviction.
func (s *shard[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n := s.head; n != nil; n = n.next {
		s.pol.OnRemove(n)
	}
	s.m = make(map[K]*node[K, V], s.cap)
	s.head, s.tail = nil, nil
	s.len = 0
	s.opt.Metrics.Size(0)
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len
}

// Counters returns the shard-local hit/miss/eviction totals.
func (s *shard[K, V]) Counters() (hits, misses int64, evicts uint64) {
	return s.hits.Load(), s.misses.Load(), s.evicts.Load()
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) expiredLocked(n *node[K, V]) bool {
	if n.exp == 0 {
		return false
	}
	return s.now() >= n.exp
}

func (s *shard[K, V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// removeNode removes n from the list and updates counters in O(1).
func (s *shard[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
	s.len--
}

// back returns the current LRU node in O(1).
func (s *shard[K, V]) back() *node[K, V] { return s.tail }

// evictNode removes the node, updates counters, and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.pol.OnRemove(n)
	s.removeNode(n)
	delete(s.m, n.key)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the shard lock; callbacks must stay lightweight.
		cb(n.key, n.val, reason)
	}
}

// enforceLimitsLocked evicts from the LRU end until the shard is at or
// under its capacity. Entries that expired are charged to TTL, the rest
// to the policy.
func (s *shard[K, V]) enforceLimitsLocked() {
	for s.len > s.cap {
		tail := s.back()
		if tail == nil {
			break
		}
		if s.expiredLocked(tail) {
			s.evictNode(tail, EvictTTL)
		} else {
			s.evictNode(tail, EvictPolicy)
		}
	}
	s.opt.Metrics.Size(s.len)
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K, V]) {
	// Policies call Remove while the shard lock is held.
	// Map bookkeeping is performed by the shard itself.
	h.s.removeNode(x.(*node[K, V]))
}
func (h shardHooks[K, V]) Back() policy.Node[K, V] {
	if n := h.s.back(); n != nil {
		return n
	}
	return nil
}
func (h shardHooks[K, V]) Len() int { return h.s.len }
