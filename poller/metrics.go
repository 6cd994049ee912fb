package poller

// Metrics exposes poller-level observability hooks.
// NoopMetrics is provided and used by default.
type Metrics interface {
	// Poll reports one successful read and the batch size (possibly zero).
	Poll(messages int)
	// PollError reports one failed read.
	PollError()
	// HandlerError reports one handler failure or panic.
	HandlerError()
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Poll(int)      {}
func (NoopMetrics) PollError()    {}
func (NoopMetrics) HandlerError() {}

var _ Metrics = NoopMetrics{}
