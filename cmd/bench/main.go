// Command bench runs a synthetic workload against the loading cache and an
// in-memory queue poller, with optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkravchenko/asynckit/cache"
	"github.com/mkravchenko/asynckit/metrics/prom"
	"github.com/mkravchenko/asynckit/poller"
)

func main() {
	// ---- Flags ----
	var (
		maxSize = flag.Int("max", 100_000, "cache size bound (entries)")
		ttl     = flag.Duration("ttl", 0, "cache TTL (0 = no expiry)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = max/2)")

		withPoller = flag.Bool("poller", false, "also drive a queue poller against a synthetic source")
		batchSize  = flag.Int("batch", 10, "poller batch size")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	cacheMetrics := prom.NewCache(nil, "asynckit", "bench_cache", nil)
	pollerMetrics := prom.NewPoller(nil, "asynckit", "bench_poller", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	c := cache.New[string, string](cache.Options[string, string]{
		Enabled: true,
		MaxSize: *maxSize,
		TTL:     *ttl,
		Metrics: cacheMetrics,
	})
	defer func() { _ = c.Close() }()

	// ---- Preload half the bound to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *maxSize / 2
	}
	for i := 0; i < pl; i++ {
		c.Put("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}

	// ---- Optional poller against a synthetic source ----
	var handled uint64
	if *withPoller {
		src := syntheticSource{batch: *batchSize}
		p := poller.New[string](src, poller.Options{Metrics: pollerMetrics})
		p.Start("bench-queue", *batchSize, 50*time.Millisecond, poller.HandlerFunc[string](
			func(_ context.Context, msgs []string) error {
				atomic.AddUint64(&handled, uint64(len(msgs)))
				return nil
			},
		))
		defer p.Stop()
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	loader := func(_ context.Context, k string) (string, error) {
		return "v:" + k, nil
	}

	// ---- Load generation ----
	var reads, writes, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					_, _ = c.Get(context.Background(), keyByZipf(), loader)
				} else {
					atomic.AddUint64(&writes, 1)
					c.Put(keyByZipf(), "v"+strconv.Itoa(localR.Int()))
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	st := c.Stats()

	fmt.Printf("max=%d ttl=%v workers=%d keys=%d dur=%v seed=%d\n",
		*maxSize, *ttl, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&reads), atomic.LoadUint64(&writes))
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  loads=%d  evictions=%d\n",
		st.Hits, st.Misses, st.HitRate()*100, st.LoadSuccesses, st.Evictions)
	fmt.Printf("Len()=%d\n", c.Len())
	if *withPoller {
		fmt.Printf("poller handled=%d messages\n", atomic.LoadUint64(&handled))
	}
}

// syntheticSource fabricates a full batch per poll after a short wait,
// approximating a busy queue.
type syntheticSource struct {
	batch int
}

func (s syntheticSource) Poll(ctx context.Context, _ string, maxMessages int, _ time.Duration) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
	}
	n := s.batch
	if n > maxMessages {
		n = maxMessages
	}
	msgs := make([]string, n)
	for i := range msgs {
		msgs[i] = uuid.NewString()
	}
	return msgs, nil
}
