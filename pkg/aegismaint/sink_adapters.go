package aegismaint

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("aegismaint: channel sink closed")

// DecisionBatchSink is invoked with ordered batches dequeued from the export queue.
type DecisionBatchSink func([]Decision) error

// NewCallbackSink adapts a DecisionBatchSink into a full DecisionSink so
// callers can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn DecisionBatchSink) DecisionSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the
// read-only channel, and a close function that the caller should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (DecisionSink, <-chan []Decision, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Decision, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, s.close
}

type callbackSink struct {
	name string
	fn   DecisionBatchSink
}

func (s *callbackSink) WriteBatch(decisions []Decision) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(decisions) == 0 {
		return nil
	}
	return s.fn(slices.Clone(decisions))
}

func (s *callbackSink) Name() string { return s.name }

// channelSink holds mu for reading across the send so close never races a
// send on the data channel.
type channelSink struct {
	name   string
	ch     chan []Decision
	closed chan struct{}

	mu       sync.RWMutex
	isClosed bool
	once     sync.Once
}

func (s *channelSink) WriteBatch(decisions []Decision) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isClosed {
		return ErrChannelSinkClosed
	}
	if len(decisions) == 0 {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- slices.Clone(decisions):
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		s.isClosed = true
		close(s.ch)
		s.mu.Unlock()
	})
}
