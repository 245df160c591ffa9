package handoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/panyam/handoff/logging"
	"github.com/panyam/handoff/metrics"
)

// Buffer is a bounded FIFO shared by exactly one Producer and one Consumer.
// Put blocks while the buffer is full and Get blocks while it is empty.
//
// Every Buffer has its own identity, and the end-of-stream marker it mints
// is only recognized by that same Buffer. Attaching more than one producer
// or consumer to a Buffer is unsupported: the end-of-stream protocol then
// stops the wrong consumer or strands the others.
type Buffer[T any] struct {
	id       uuid.UUID
	name     string
	capacity int
	logger   logr.Logger

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []Message[T] // ring of len capacity
	head     int
	size     int
}

// NewBuffer creates a buffer that holds at most capacity items. Only the
// Name and Logger options apply; capacity must be positive.
func NewBuffer[T any](capacity int, opts ...Option) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	cfg := newConfig(opts...)
	b := &Buffer[T]{
		id:       uuid.New(),
		name:     cfg.Name,
		capacity: capacity,
		logger:   cfg.Logger.WithValues("buffer", cfg.Name),
		items:    make([]Message[T], capacity),
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)

	metrics.RecordBufferCapacity(b.name, capacity)
	metrics.RecordBufferItems(b.name, 0)
	return b, nil
}

// ID returns the identity stamped on every message passing through b.
func (b *Buffer[T]) ID() uuid.UUID {
	return b.id
}

// Name returns the name b was created with.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Cap returns the capacity of b.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Len returns the number of items currently held.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// IsEndOfStream reports whether msg is the end-of-stream marker minted by b.
// Markers from other buffers and zero-valued payloads never match.
func (b *Buffer[T]) IsEndOfStream(msg Message[T]) bool {
	return msg.eos && msg.Source == b.id
}

// Put appends item at the tail, blocking while the buffer is full.
func (b *Buffer[T]) Put(item T) {
	// put only fails once its context is done, which Background never is.
	_ = b.put(context.Background(), valueMessage(b.id, item))
}

// PutEndOfStream appends b's end-of-stream marker, blocking while the buffer
// is full. A producer calls it exactly once, after its last item.
func (b *Buffer[T]) PutEndOfStream() {
	// Cannot fail, see Put.
	_ = b.put(context.Background(), endOfStream[T](b.id))
}

// Get removes and returns the head item, blocking while the buffer is empty.
func (b *Buffer[T]) Get() Message[T] {
	// Cannot fail, see Put.
	msg, _ := b.get(context.Background())
	return msg
}

// PutContext is Put that gives up when ctx is done. The item is not
// enqueued when an error is returned.
func (b *Buffer[T]) PutContext(ctx context.Context, item T) error {
	return b.put(ctx, valueMessage(b.id, item))
}

// PutEndOfStreamContext is PutEndOfStream that gives up when ctx is done.
func (b *Buffer[T]) PutEndOfStreamContext(ctx context.Context) error {
	return b.put(ctx, endOfStream[T](b.id))
}

// GetContext is Get that gives up when ctx is done. Nothing is dequeued
// when an error is returned.
func (b *Buffer[T]) GetContext(ctx context.Context) (Message[T], error) {
	return b.get(ctx)
}

func (b *Buffer[T]) put(ctx context.Context, msg Message[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var waitStart time.Time
	if b.size == b.capacity {
		waitStart = time.Now()
		stop := b.wakeOnDone(ctx, b.notFull)
		defer stop()
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if b.size < b.capacity {
			break
		}
		b.notFull.Wait()
	}
	if !waitStart.IsZero() {
		metrics.RecordWait(b.name, metrics.OperationPut, time.Since(waitStart))
	}

	b.items[(b.head+b.size)%b.capacity] = msg
	b.size++
	metrics.RecordPut(b.name)
	metrics.RecordBufferItems(b.name, b.size)
	b.logger.V(logging.TRACE).Info("Put", "endOfStream", msg.eos, "len", b.size)

	b.notEmpty.Broadcast()
	return nil
}

func (b *Buffer[T]) get(ctx context.Context) (Message[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var waitStart time.Time
	if b.size == 0 {
		waitStart = time.Now()
		stop := b.wakeOnDone(ctx, b.notEmpty)
		defer stop()
	}
	for {
		if err := ctx.Err(); err != nil {
			var zero Message[T]
			return zero, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if b.size > 0 {
			break
		}
		b.notEmpty.Wait()
	}
	if !waitStart.IsZero() {
		metrics.RecordWait(b.name, metrics.OperationGet, time.Since(waitStart))
	}

	msg := b.items[b.head]
	// drop the reference so the ring does not pin consumed payloads
	b.items[b.head] = Message[T]{}
	b.head = (b.head + 1) % b.capacity
	b.size--
	metrics.RecordGet(b.name)
	metrics.RecordBufferItems(b.name, b.size)
	b.logger.V(logging.TRACE).Info("Get", "endOfStream", msg.eos, "len", b.size)

	b.notFull.Broadcast()
	return msg, nil
}

// wakeOnDone wakes the waiters of cond once ctx is done so they can notice
// the cancellation. stop does not wait for a wake-up already in flight, so
// it may be called with b.mu held.
func (b *Buffer[T]) wakeOnDone(ctx context.Context, cond *sync.Cond) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return true }
	}
	return context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		cond.Broadcast()
	})
}
