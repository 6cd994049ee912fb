package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

func staticLoader[V any](v V) Loader[string, V] {
	return func(context.Context, string) (V, error) { return v, nil }
}

// Uses a fake clock to avoid timing flakiness.
// An entry written at t must be a miss for any Get at time >= t+TTL.
func TestCache_TTL_FakeClock(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c := New[string, string](Options[string, string]{
		Enabled: true,
		MaxSize: 4,
		TTL:     100 * time.Millisecond,
		Clock:   clk,
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("x", "v")
	if v, err := c.Get(context.Background(), "x", nil); err != nil || v != "v" {
		t.Fatalf("fresh entry: v=%q err=%v", v, err)
	}

	clk.add(100 * time.Millisecond) // exactly at deadline: expired
	var loads int64
	v, err := c.Get(context.Background(), "x", func(context.Context, string) (string, error) {
		atomic.AddInt64(&loads, 1)
		return "reloaded", nil
	})
	if err != nil || v != "reloaded" {
		t.Fatalf("expired entry must reload: v=%q err=%v", v, err)
	}
	if loads != 1 {
		t.Fatalf("loader must run once after expiry, ran %d times", loads)
	}
}

// Put/Get/Invalidate basics, including the loader bypass on Put.
func TestCache_PutGetInvalidate(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 8})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("k", "v1")

	// A live entry must win over the loader.
	v, err := c.Get(context.Background(), "k", func(context.Context, string) (string, error) {
		t.Error("loader must not run for a live entry")
		return "v2", nil
	})
	if err != nil || v != "v1" {
		t.Fatalf("Get after Put: v=%q err=%v", v, err)
	}

	if !c.Invalidate("k") {
		t.Fatal("Invalidate existing key must return true")
	}
	if c.Invalidate("k") {
		t.Fatal("Invalidate absent key must return false")
	}

	v, err = c.Get(context.Background(), "k", staticLoader("v2"))
	if err != nil || v != "v2" {
		t.Fatalf("Get after Invalidate must load: v=%q err=%v", v, err)
	}
}

// InvalidateAll drops everything at once.
func TestCache_InvalidateAll(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Enabled: true, MaxSize: 16})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 5 {
		t.Fatalf("Len before clear: want 5, got %d", c.Len())
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Fatalf("Len after clear: want 0, got %d", c.Len())
	}
}

// Deterministic LRU eviction: single shard, small bound.
// Accessing "a" promotes it; inserting "c" evicts the LRU entry ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{
		Enabled: true,
		MaxSize: 2,
		Shards:  1, // single shard so the LRU order is global
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1) // LRU = a
	c.Put("b", 2) // MRU = b

	if _, err := c.Get(context.Background(), "a", nil); err != nil { // promote a -> MRU
		t.Fatalf("expected hit for a, got %v", err)
	}
	c.Put("c", 3) // overflow -> evict LRU (b)

	if c.Len() != 2 {
		t.Fatalf("Len must stay at the bound, got %d", c.Len())
	}
	if _, err := c.Get(context.Background(), "b", nil); !errors.Is(err, ErrNilLoader) {
		t.Fatal("b must be evicted")
	}
	if _, err := c.Get(context.Background(), "a", nil); err != nil {
		t.Fatal("a must survive (promoted)")
	}
}

// Three distinct keys into a MaxSize=2 cache with no intervening reads:
// the resident count stabilizes at or under the bound.
func TestCache_SizeConvergesToBound(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Enabled: true, MaxSize: 2, Shards: 1})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if got := c.Len(); got > 2 {
		t.Fatalf("size must be <= 2, got %d", got)
	}
	if st := c.Stats(); st.Evictions == 0 {
		t.Fatal("overflow must be visible as an eviction")
	}
}

// Singleflight: concurrent Gets for the same key trigger the loader exactly
// once; every caller receives the shared value.
func TestCache_Get_Singleflight(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 64})
	t.Cleanup(func() { _ = c.Close() })

	load := func(_ context.Context, k string) (string, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(5 * time.Millisecond) // simulate I/O
		return "v:" + k, nil
	}

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.Get(ctx, "k", load)
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.Get(context.Background(), "k", load); err != nil || v != "v:k" {
		t.Fatalf("followup Get failed: v=%q err=%v", v, err)
	}
}

// Two Gets staggered by 50ms against a 200ms loader must share one load.
func TestCache_Get_StaggeredCallersShareLoad(t *testing.T) {
	t.Parallel()

	var calls int64
	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 8})
	t.Cleanup(func() { _ = c.Close() })

	load := func(context.Context, string) (string, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		return "v", nil
	}

	var g errgroup.Group
	g.Go(func() error {
		v, err := c.Get(context.Background(), "k", load)
		if err != nil || v != "v" {
			return fmt.Errorf("first caller: v=%q err=%v", v, err)
		}
		return nil
	})
	time.Sleep(50 * time.Millisecond)
	g.Go(func() error {
		v, err := c.Get(context.Background(), "k", load)
		if err != nil || v != "v" {
			return fmt.Errorf("second caller: v=%q err=%v", v, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run once, ran %d times", got)
	}
}

// A failed load is returned to the caller, never cached, and the key stays
// eligible for a fresh attempt.
func TestCache_Get_LoadFailureNotCached(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 8})
	t.Cleanup(func() { _ = c.Close() })

	boom := errors.New("boom")
	if _, err := c.Get(context.Background(), "k", func(context.Context, string) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("a failed load must not leave an entry behind")
	}

	v, err := c.Get(context.Background(), "k", staticLoader("recovered"))
	if err != nil || v != "recovered" {
		t.Fatalf("retry after failure: v=%q err=%v", v, err)
	}

	st := c.Stats()
	if st.LoadFailures != 1 || st.LoadSuccesses != 1 {
		t.Fatalf("load counters: %+v", st)
	}
}

// A nil loader is an error on miss but irrelevant on hit.
func TestCache_Get_NilLoader(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 8})
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.Get(context.Background(), "k", nil); !errors.Is(err, ErrNilLoader) {
		t.Fatalf("want ErrNilLoader, got %v", err)
	}
	c.Put("k", "v")
	if v, err := c.Get(context.Background(), "k", nil); err != nil || v != "v" {
		t.Fatalf("hit with nil loader: v=%q err=%v", v, err)
	}
}

// A disabled cache behaves exactly like calling the loader directly:
// every Get loads, mutations are no-ops, nothing is retained.
func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Enabled: false})
	t.Cleanup(func() { _ = c.Close() })

	var calls int64
	load := func(_ context.Context, k string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "v:" + k, nil
	}

	for i := 0; i < 3; i++ {
		if v, err := c.Get(context.Background(), "k", load); err != nil || v != "v:k" {
			t.Fatalf("disabled Get: v=%q err=%v", v, err)
		}
	}
	if calls != 3 {
		t.Fatalf("disabled cache must load every call, loaded %d times", calls)
	}

	c.Put("k", "stored")
	if v, _ := c.Get(context.Background(), "k", load); v != "v:k" {
		t.Fatal("Put on a disabled cache must not retain state")
	}
	if c.Invalidate("k") {
		t.Fatal("Invalidate on a disabled cache must report absent")
	}
	if c.Len() != 0 {
		t.Fatal("disabled cache must stay empty")
	}

	st := c.Stats()
	if st != (Stats{}) {
		t.Fatalf("disabled stats must be the zero snapshot, got %+v", st)
	}
	if st.Enabled {
		t.Fatal("disabled stats must report Enabled=false")
	}
}

// A closed cache falls through to the loader and ignores mutations.
func TestCache_Closed(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Enabled: true, MaxSize: 8})
	c.Put("k", "v")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	var calls int64
	v, err := c.Get(context.Background(), "k", func(context.Context, string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "fresh", nil
	})
	if err != nil || v != "fresh" || calls != 1 {
		t.Fatalf("closed Get must load: v=%q err=%v calls=%d", v, err, calls)
	}

	c.Put("k2", "x") // ignored
	if c.Invalidate("k2") {
		t.Fatal("Invalidate after Close must report absent")
	}
}
