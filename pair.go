package handoff

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/panyam/handoff/logging"
)

// Pair wires one Buffer to one Producer and one Consumer and runs the two
// tasks concurrently. It is the only supported way to attach more than a
// single task to a Buffer.
//
// If either task fails (an error or a panic) the other one is cancelled, so
// a crashed producer never leaves the consumer blocked on an empty buffer.
type Pair[T any] struct {
	name   string
	logger logr.Logger

	buffer      *Buffer[T]
	producer    *Producer[T]
	consumer    *Consumer[T]
	destination []T

	mu      sync.Mutex
	started bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// NewPair creates a pair that moves source into a fresh destination through
// a buffer of the configured capacity (DefaultCapacity unless WithCapacity is
// given).
func NewPair[T any](source []T, opts ...Option) (*Pair[T], error) {
	return newPair(slices.Values(source), len(source), opts...)
}

// NewSeqPair is NewPair over any ordered sequence.
func NewSeqPair[T any](source iter.Seq[T], opts ...Option) (*Pair[T], error) {
	return newPair(source, 0, opts...)
}

func newPair[T any](source iter.Seq[T], sizeHint int, opts ...Option) (*Pair[T], error) {
	cfg := newConfig(opts...)
	buffer, err := NewBuffer[T](cfg.Capacity, opts...)
	if err != nil {
		return nil, err
	}
	p := &Pair[T]{
		name:        cfg.Name,
		logger:      cfg.Logger.WithValues("pair", cfg.Name),
		buffer:      buffer,
		destination: make([]T, 0, sizeHint),
	}
	p.producer = NewSeqProducer(source, buffer, opts...)
	p.consumer = NewConsumer(buffer, &p.destination, opts...)
	return p, nil
}

// Buffer returns the buffer shared by the two tasks.
func (p *Pair[T]) Buffer() *Buffer[T] {
	return p.buffer
}

// Producer returns the producing task.
func (p *Pair[T]) Producer() *Producer[T] {
	return p.producer
}

// Consumer returns the consuming task.
func (p *Pair[T]) Consumer() *Consumer[T] {
	return p.consumer
}

// Name returns the pair's name
func (p *Pair[T]) Name() string {
	return p.name
}

// Start launches the producer and the consumer. The orchestrating goroutine
// does no buffer operations itself.
//
// The pair's tasks are meant to be started only through the pair. If either
// was already started directly, Start returns ErrAlreadyStarted and leaves
// the other task ready and the pair unstarted.
func (p *Pair[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("%w: pair %s", ErrAlreadyStarted, p.name)
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	// Both tasks count as started before either goroutine runs so that an
	// early Stop reaches both of them. If either was already started on its
	// own, neither is touched.
	pctx, perr := p.producer.begin(gctx)
	cctx, cerr := p.consumer.begin(gctx)
	if err := multierr.Combine(perr, cerr); err != nil {
		if perr == nil {
			p.producer.unbegin()
		}
		if cerr == nil {
			p.consumer.unbegin()
		}
		cancel()
		return err
	}
	group.Go(func() error { return p.producer.execute(pctx) })
	group.Go(func() error { return p.consumer.execute(cctx) })
	p.started = true
	p.group = group
	p.cancel = cancel
	p.logger.V(logging.VERBOSE).Info("Pair started", "capacity", p.buffer.Cap())
	return nil
}

// Wait joins both tasks and returns the destination. The destination is
// safe to read once Wait returns. On failure it holds whatever was consumed
// before the failure and the error combines the errors of both tasks.
func (p *Pair[T]) Wait() ([]T, error) {
	p.mu.Lock()
	group, cancel := p.group, p.cancel
	p.mu.Unlock()
	if group == nil {
		return nil, ErrNotStarted
	}

	_ = group.Wait()
	cancel()
	err := multierr.Combine(p.producer.Err(), p.consumer.Err())
	if err != nil {
		p.logger.Error(err, "Pair failed", "received", p.consumer.Received())
	} else {
		p.logger.V(logging.VERBOSE).Info("Pair finished", "received", p.consumer.Received())
	}
	return p.destination, err
}

// Stop stops both tasks in reverse order, consumer first, and waits for them.
func (p *Pair[T]) Stop() error {
	components := []Component{p.producer, p.consumer}
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(); err != nil {
			return fmt.Errorf("failed to stop component %d: %w", i, err)
		}
	}
	return nil
}

// IsRunning returns true if either task is running.
func (p *Pair[T]) IsRunning() bool {
	return p.producer.IsRunning() || p.consumer.IsRunning()
}

// Run moves source through a bounded buffer from a producer goroutine to a
// consumer goroutine and returns the destination once both finished.
func Run[T any](ctx context.Context, source []T, opts ...Option) ([]T, error) {
	pair, err := NewPair(source, opts...)
	if err != nil {
		return nil, err
	}
	if err := pair.Start(ctx); err != nil {
		return nil, err
	}
	return pair.Wait()
}
