package pipeline

// ProgressEvent is one best-effort progress notification.  Fraction is in
// [0, 1] and never decreases within a run.
type ProgressEvent struct {
	Fraction float64
	Status   string
}

// ProgressSink receives progress events.  Implementations must not block:
// the runner publishes synchronously from the pipeline goroutine, and a slow
// consumer must never slow the pipeline down.
type ProgressSink interface {
	Publish(ProgressEvent)
}

// ChannelSink forwards events to a channel, dropping events when the channel
// is full.  Consumers that only care about the latest state can use a small
// buffer and still never stall the run.
type ChannelSink struct {
	ch chan ProgressEvent
}

// NewChannelSink returns a sink buffering up to size events.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 1
	}
	return &ChannelSink{ch: make(chan ProgressEvent, size)}
}

// Publish implements ProgressSink.
func (s *ChannelSink) Publish(ev ProgressEvent) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan ProgressEvent { return s.ch }

// Close closes the event channel.  Call only after the run has finished.
func (s *ChannelSink) Close() { close(s.ch) }

// FuncSink adapts a function to ProgressSink.
type FuncSink func(ProgressEvent)

// Publish implements ProgressSink.
func (f FuncSink) Publish(ev ProgressEvent) { f(ev) }
