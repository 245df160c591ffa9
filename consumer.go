package handoff

import (
	"context"
	"sync/atomic"

	"github.com/looplab/fsm"

	"github.com/panyam/handoff/logging"
)

var consumerEvents = fsm.Events{
	{Name: eventStart, Src: []string{StateReady}, Dst: StateRunning},
	{Name: eventFinish, Src: []string{StateRunning}, Dst: StateDone},
	{Name: eventFail, Src: []string{StateReady, StateRunning}, Dst: StateFailed},
}

// Consumer drains a Buffer into a destination slice, in the order received,
// until it gets the buffer's end-of-stream marker. The marker is never
// appended and Get is not called again after it.
//
// The destination is owned by the consumer while it runs. Read it only after
// Wait returns or ClosedChan fires.
type Consumer[T any] struct {
	*task
	buffer      *Buffer[T]
	destination *[]T
	received    atomic.Int64

	// OnDone is called after the consumer finished, before ClosedChan fires.
	OnDone func(c *Consumer[T])
}

// NewConsumer creates a consumer that appends to *destination.
// Panics if destination is nil.
func NewConsumer[T any](buffer *Buffer[T], destination *[]T, opts ...Option) *Consumer[T] {
	if destination == nil {
		panic("Cannot consume into a nil destination")
	}
	cfg := newConfig(WithName(buffer.Name()))
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Consumer[T]{
		buffer:      buffer,
		destination: destination,
	}
	c.task = newTask("consumer", consumerEvents, cfg, c.consume)
	c.task.onDone = func() {
		if c.OnDone != nil {
			c.OnDone(c)
		}
	}
	return c
}

// Received returns how many items have been appended so far.
func (c *Consumer[T]) Received() int {
	return int(c.received.Load())
}

func (c *Consumer[T]) consume(ctx context.Context) error {
	for {
		msg, err := c.buffer.GetContext(ctx)
		if err != nil {
			return err
		}
		if c.buffer.IsEndOfStream(msg) {
			c.logger.V(logging.VERBOSE).Info("End of stream", "received", c.Received())
			return nil
		}
		*c.destination = append(*c.destination, msg.Value)
		c.received.Add(1)
	}
}
