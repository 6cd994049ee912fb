// Package poller provides a background loop that continuously drains a
// message source and hands batches to a handler under controlled lifecycle
// and backpressure.
//
// One Poller owns at most one active session. Start launches a dedicated
// worker that repeats read→dispatch until Stop; the handler runs
// synchronously in the worker, so handler latency directly throttles
// intake (this is the sole backpressure mechanism). Read errors are never
// fatal: the loop logs, sleeps a fixed interval, and retries until Stop.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// QueueReader yields a bounded batch of messages for a target. The reader
// implements the long-poll wait itself (up to wait); failures surface as
// errors to the poller. The supplied ctx carries the poller's read deadline
// and is cancelled on Stop; cancellation-aware readers return early.
type QueueReader[M any] interface {
	Poll(ctx context.Context, target string, maxMessages int, wait time.Duration) ([]M, error)
}

// Handler consumes one batch. A returned error (or a panic) is logged by
// the poller and never stops the loop; redelivery semantics belong to the
// reader side, not here.
type Handler[M any] interface {
	HandleMessages(ctx context.Context, msgs []M) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc[M any] func(ctx context.Context, msgs []M) error

func (f HandlerFunc[M]) HandleMessages(ctx context.Context, msgs []M) error { return f(ctx, msgs) }

// Poller drives a single sequential read→dispatch loop against a
// QueueReader. All lifecycle methods are safe for concurrent use.
type Poller[M any] struct {
	reader  QueueReader[M]
	logger  *slog.Logger
	metrics Metrics

	retryInterval time.Duration
	readGrace     time.Duration
	shutdownGrace time.Duration

	mu      sync.Mutex
	session *session // nil when idle
}

// session is the owned, explicitly scoped state of one Start..Stop span.
// The worker checks its own running flag, never the poller's, so a session
// abandoned after the shutdown grace can never bleed into its successor.
type session struct {
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Poller for the given reader. Defaults are applied for
// any zero Option field (see Options).
func New[M any](reader QueueReader[M], opt Options) *Poller[M] {
	opt = opt.withDefaults()
	return &Poller[M]{
		reader:        reader,
		logger:        opt.Logger,
		metrics:       opt.Metrics,
		retryInterval: opt.RetryInterval,
		readGrace:     opt.ReadGrace,
		shutdownGrace: opt.ShutdownGrace,
	}
}

// Start begins polling target and returns immediately. If the poller is
// already running, Start logs a warning and is a no-op; it never fails the
// caller. maxMessages bounds each batch; pollTimeout is the long-poll wait
// handed to the reader (each read is additionally bounded by
// pollTimeout + ReadGrace).
func (p *Poller[M]) Start(target string, maxMessages int, pollTimeout time.Duration, handler Handler[M]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil && p.session.running.Load() {
		p.logWarn("poller already running, ignoring start", slog.String("target", target))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel, done: make(chan struct{})}
	s.running.Store(true)
	p.session = s

	go p.loop(ctx, s, target, maxMessages, pollTimeout, handler)
}

// Stop halts the active session. It clears the running flag, cancels the
// in-flight read (best effort), and blocks until the worker exits or the
// shutdown grace period lapses, whichever comes first. Past the grace
// period the worker is abandoned under its cancelled context. Stop is
// idempotent; stopping an idle poller is a no-op.
func (p *Poller[M]) Stop() {
	p.mu.Lock()
	s := p.session
	if s == nil || !s.running.Load() {
		p.mu.Unlock()
		return
	}
	s.running.Store(false)
	s.cancel()
	p.session = nil
	p.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(p.shutdownGrace):
		p.logWarn("poller worker did not exit within grace period, abandoning",
			slog.Duration("grace", p.shutdownGrace))
	}
}

// IsPolling reports whether a session is currently running. Safe to call
// from any goroutine.
func (p *Poller[M]) IsPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil && p.session.running.Load()
}

// loop is the dedicated worker. The running flag is checked once per
// iteration, so a Stop issued mid-read lets the current read/handle cycle
// complete unless the reader honors ctx cancellation.
func (p *Poller[M]) loop(ctx context.Context, s *session, target string, maxMessages int, pollTimeout time.Duration, handler Handler[M]) {
	defer close(s.done)
	defer s.running.Store(false)

	p.logInfo("poller started",
		slog.String("target", target),
		slog.Int("max_messages", maxMessages),
		slog.Duration("poll_timeout", pollTimeout),
	)

	for s.running.Load() {
		readCtx, cancel := context.WithTimeout(ctx, pollTimeout+p.readGrace)
		msgs, err := p.reader.Poll(readCtx, target, maxMessages, pollTimeout)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				break // Stop cancelled the read; not a real failure
			}
			p.metrics.PollError()
			p.logWarn("queue read failed, will retry",
				slog.String("target", target),
				slog.Duration("retry_in", p.retryInterval),
				slog.Any("err", err),
			)
			p.sleep(ctx, p.retryInterval)
			continue
		}

		p.metrics.Poll(len(msgs))
		if len(msgs) > 0 {
			// Synchronous dispatch: the next read cannot start until the
			// handler returns.
			p.dispatch(ctx, target, handler, msgs)
		}
		// Empty batch: re-poll immediately, the long-poll wait paces us.
	}

	p.logInfo("poller stopped", slog.String("target", target))
}

// dispatch invokes the handler for one batch, containing any error or
// panic so the loop survives misbehaving consumers.
func (p *Poller[M]) dispatch(ctx context.Context, target string, handler Handler[M], msgs []M) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.HandlerError()
			p.logError("handler panicked", fmt.Errorf("panic: %v", r),
				slog.String("target", target),
				slog.Int("count", len(msgs)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := handler.HandleMessages(ctx, msgs); err != nil {
		p.metrics.HandlerError()
		p.logError("handler failed", err,
			slog.String("target", target),
			slog.Int("count", len(msgs)),
		)
	}
}

// sleep waits for d or until the session context is cancelled.
func (p *Poller[M]) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---- nil-safe logging helpers ----

func (p *Poller[M]) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Poller[M]) logWarn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Poller[M]) logError(msg string, err error, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, append(args, slog.Any("err", err))...)
	}
}
