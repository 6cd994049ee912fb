// Package singleflight coalesces concurrent loads for the same key so the
// backing source is asked at most once per key at any instant.
package singleflight

import (
	"context"
	"sync"
)

// Group coalesces concurrent calls for the same key K: the first caller
// becomes the leader and runs fn; every other caller that arrives while the
// call is in flight waits for the shared result instead of re-invoking fn.
//
// Concurrency notes:
//   - Publishing (val, err) happens-before close(c.done), so followers that
//     return after <-done observe the final values.
//   - Cancelling a follower's ctx unblocks only that follower; the leader's
//     fn keeps running. Cancellation of the work itself is fn's business:
//     the leader's ctx is passed through to fn.
//   - The call is removed from the table when fn returns, so a failed call
//     leaves nothing behind and the next Do starts fresh.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do runs fn at most once for concurrent callers sharing a key. The leader
// executes fn(ctx) with its own ctx; followers block on the shared result or
// on their own ctx, whichever finishes first.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func(ctx context.Context) (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		// Follower: an in-flight call exists, wait for it (respecting ctx).
		done := c.done
		g.mu.Unlock()

		select {
		case <-done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// Leader for this key.
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	// Execute fn outside the lock.
	v, err := fn(ctx)

	// Publish the result and wake followers.
	c.val, c.err = v, err
	close(c.done)

	// Remove the in-flight marker so the next Do starts a fresh call.
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return v, err
}
