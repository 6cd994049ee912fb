package poller

import (
	"log/slog"
	"time"
)

const (
	// defaultRetryInterval is the fixed pause after a failed read.
	defaultRetryInterval = time.Second
	// defaultReadGrace is added on top of the long-poll wait when bounding
	// a single read, so a well-behaved reader is never cut off mid-wait.
	defaultReadGrace = 5 * time.Second
	// defaultShutdownGrace bounds how long Stop waits for the worker.
	defaultShutdownGrace = 30 * time.Second
)

// Options configures a Poller. The zero value is usable; defaults are
// applied in New.
type Options struct {
	// Logger receives lifecycle and failure events. Nil disables logging.
	Logger *slog.Logger

	// Metrics receives poll/error signals; nil => NoopMetrics.
	Metrics Metrics

	// RetryInterval is the fixed sleep after a read failure (default 1s).
	RetryInterval time.Duration

	// ReadGrace is added to the poll timeout to bound each read
	// (default 5s).
	ReadGrace time.Duration

	// ShutdownGrace bounds how long Stop blocks waiting for the worker to
	// exit before abandoning it (default 30s).
	ShutdownGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.ReadGrace <= 0 {
		o.ReadGrace = defaultReadGrace
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = defaultShutdownGrace
	}
	return o
}
