// Package prom exports the cache and poller observability hooks as
// Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkravchenko/asynckit/cache"
)

// CacheAdapter implements cache.Metrics and exports Prometheus
// counters/gauges. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe.
type CacheAdapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	loads   *prometheus.CounterVec
	loadDur prometheus.Histogram
	size    prometheus.Gauge
}

// NewCache constructs a Prometheus adapter for cache metrics.
//   - reg:         registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func NewCache(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CacheAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "loads_total",
				Help:        "Completed loader invocations by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		loadDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Loader invocation duration",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.loads, a.loadDur, a.size)
	return a
}

// Hit increments the hit counter.
func (a *CacheAdapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *CacheAdapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *CacheAdapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates the resident-entries gauge.
func (a *CacheAdapter) Size(entries int) {
	a.size.Set(float64(entries))
}

// Load records one completed loader invocation.
func (a *CacheAdapter) Load(d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	a.loads.WithLabelValues(result).Inc()
	a.loadDur.Observe(d.Seconds())
}

// reason maps EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictTTL:
		return "ttl"
	default:
		return "policy"
	}
}

// Compile-time check: ensure CacheAdapter implements cache.Metrics.
var _ cache.Metrics = (*CacheAdapter)(nil)
