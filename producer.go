package handoff

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/looplab/fsm"

	"github.com/panyam/handoff/logging"
)

var producerEvents = fsm.Events{
	{Name: eventStart, Src: []string{StateReady}, Dst: StateRunning},
	{Name: eventDrain, Src: []string{StateRunning}, Dst: StateDraining},
	{Name: eventEmit, Src: []string{StateDraining}, Dst: StateEmitting},
	{Name: eventFinish, Src: []string{StateEmitting}, Dst: StateDone},
	{Name: eventFail, Src: []string{StateReady, StateRunning, StateDraining, StateEmitting}, Dst: StateFailed},
}

// Producer puts every element of an ordered source into a Buffer, in order,
// followed by exactly one end-of-stream marker. The marker is put even when
// the source is empty so the consumer always learns the stream ended.
//
// Put blocking on a full buffer is the only place a Producer waits.
type Producer[T any] struct {
	*task
	source iter.Seq[T]
	buffer *Buffer[T]
	sent   atomic.Int64

	// OnDone is called after the producer finished, before ClosedChan fires.
	OnDone func(p *Producer[T])
}

// NewProducer creates a producer over a slice. The slice is only read.
func NewProducer[T any](source []T, buffer *Buffer[T], opts ...Option) *Producer[T] {
	return NewSeqProducer(slices.Values(source), buffer, opts...)
}

// NewSeqProducer creates a producer over any ordered sequence. The sequence
// is ranged over once, from the producer's goroutine.
func NewSeqProducer[T any](source iter.Seq[T], buffer *Buffer[T], opts ...Option) *Producer[T] {
	cfg := newConfig(WithName(buffer.Name()))
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Producer[T]{
		source: source,
		buffer: buffer,
	}
	p.task = newTask("producer", producerEvents, cfg, p.produce)
	p.task.onDone = func() {
		if p.OnDone != nil {
			p.OnDone(p)
		}
	}
	return p
}

// Sent returns how many source items have been put so far, the marker not
// included.
func (p *Producer[T]) Sent() int {
	return int(p.sent.Load())
}

func (p *Producer[T]) produce(ctx context.Context) error {
	p.transition(eventDrain)
	for item := range p.source {
		if err := p.buffer.PutContext(ctx, item); err != nil {
			return err
		}
		p.sent.Add(1)
	}

	p.transition(eventEmit)
	if err := p.buffer.PutEndOfStreamContext(ctx); err != nil {
		return err
	}
	p.logger.V(logging.VERBOSE).Info("Source drained", "sent", p.Sent())
	return nil
}
