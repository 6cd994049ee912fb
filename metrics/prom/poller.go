package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkravchenko/asynckit/poller"
)

// PollerAdapter implements poller.Metrics and exports Prometheus counters.
type PollerAdapter struct {
	polls         prometheus.Counter
	pollErrors    prometheus.Counter
	messages      prometheus.Counter
	handlerErrors prometheus.Counter
	batchSize     prometheus.Histogram
}

// NewPoller constructs a Prometheus adapter for poller metrics. Arguments
// follow NewCache: registry (nil => default), namespace, subsystem, and
// optional static labels.
func NewPoller(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *PollerAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &PollerAdapter{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "polls_total",
			Help:        "Successful queue reads",
			ConstLabels: constLabels,
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "poll_errors_total",
			Help:        "Failed queue reads",
			ConstLabels: constLabels,
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "messages_total",
			Help:        "Messages received across all batches",
			ConstLabels: constLabels,
		}),
		handlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "handler_errors_total",
			Help:        "Handler failures and panics",
			ConstLabels: constLabels,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "batch_size",
			Help:        "Messages per successful read",
			ConstLabels: constLabels,
			Buckets:     prometheus.LinearBuckets(0, 1, 11),
		}),
	}
	reg.MustRegister(a.polls, a.pollErrors, a.messages, a.handlerErrors, a.batchSize)
	return a
}

// Poll records one successful read and its batch size.
func (a *PollerAdapter) Poll(messages int) {
	a.polls.Inc()
	a.messages.Add(float64(messages))
	a.batchSize.Observe(float64(messages))
}

// PollError increments the failed-read counter.
func (a *PollerAdapter) PollError() { a.pollErrors.Inc() }

// HandlerError increments the handler-failure counter.
func (a *PollerAdapter) HandlerError() { a.handlerErrors.Inc() }

// Compile-time check: ensure PollerAdapter implements poller.Metrics.
var _ poller.Metrics = (*PollerAdapter)(nil)
