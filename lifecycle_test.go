package handoff

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProducerEnqueuesSourceThenMarker verifies the producer puts every item
// in order followed by exactly one marker.
func TestProducerEnqueuesSourceThenMarker(t *testing.T) {
	b := newTestBuffer[int](t, 10)
	p := NewProducer([]int{1, 2, 3}, b)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, 3, p.Sent())
	require.Equal(t, 4, b.Len())

	for _, want := range []int{1, 2, 3} {
		msg := b.Get()
		assert.False(t, b.IsEndOfStream(msg))
		assert.Equal(t, want, msg.Value)
	}
	assert.True(t, b.IsEndOfStream(b.Get()))
}

// TestProducerEmptySourceStillEmitsMarker verifies an empty source still
// terminates the consumer.
func TestProducerEmptySourceStillEmitsMarker(t *testing.T) {
	b := newTestBuffer[int](t, 1)
	p := NewProducer([]int{}, b)

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, 1, b.Len())
	assert.True(t, b.IsEndOfStream(b.Get()))
}

// TestProducerStateProgression walks the producer through its states using a
// capacity 1 buffer and no consumer, so each put blocks until we Get.
func TestProducerStateProgression(t *testing.T) {
	b := newTestBuffer[int](t, 1)
	p := NewProducer([]int{1, 2}, b)
	assert.Equal(t, StateReady, p.State())
	assert.False(t, p.IsRunning())

	require.NoError(t, p.Start(context.Background()))
	// 1 is in the buffer, the put of 2 is blocked.
	assert.Eventually(t, func() bool { return p.Sent() == 1 && b.Len() == 1 }, testTimeout, time.Millisecond)
	assert.Equal(t, StateDraining, p.State())
	assert.True(t, p.IsRunning())

	assert.Equal(t, 1, b.Get().Value)
	// 2 is in the buffer, the put of the marker is blocked.
	assert.Eventually(t, func() bool { return p.State() == StateEmitting }, testTimeout, time.Millisecond)

	assert.Equal(t, 2, b.Get().Value)
	require.NoError(t, withTimeout(t, p.ClosedChan()))
	assert.Equal(t, StateDone, p.State())
	assert.False(t, p.IsRunning())
	assert.True(t, b.IsEndOfStream(b.Get()))
}

// TestConsumerStopsAtMarker manually fills a buffer and attaches only a
// consumer, which must drain the payloads and terminate.
func TestConsumerStopsAtMarker(t *testing.T) {
	b := newTestBuffer[int](t, 5)
	b.Put(1)
	b.Put(2)
	b.Put(3)
	b.PutEndOfStream()

	var destination []int
	c := NewConsumer(b, &destination)
	require.NoError(t, c.Start(context.Background()))

	assert.NoError(t, withTimeout(t, c.ClosedChan()))
	assert.False(t, c.IsRunning())
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, []int{1, 2, 3}, destination)
	assert.Equal(t, 3, c.Received())
	assert.Equal(t, 0, b.Len())
}

// TestConsumerDoesNotGetAfterMarker verifies items after the marker are left
// in the buffer.
func TestConsumerDoesNotGetAfterMarker(t *testing.T) {
	b := newTestBuffer[int](t, 3)
	b.Put(1)
	b.PutEndOfStream()
	b.Put(99)

	var destination []int
	c := NewConsumer(b, &destination)
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []int{1}, destination)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 99, b.Get().Value)
}

func TestNewConsumerNilDestinationPanics(t *testing.T) {
	b := newTestBuffer[int](t, 1)
	assert.Panics(t, func() { NewConsumer[int](b, nil) })
}

// TestOnDoneCallbacks verifies OnDone fires before ClosedChan.
func TestOnDoneCallbacks(t *testing.T) {
	b := newTestBuffer[string](t, 2)
	var destination []string

	producerDone := make(chan struct{})
	consumerDone := make(chan struct{})
	p := NewProducer([]string{"a", "b", "c"}, b)
	p.OnDone = func(p *Producer[string]) { close(producerDone) }
	c := NewConsumer(b, &destination)
	c.OnDone = func(c *Consumer[string]) { close(consumerDone) }

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, p.Start(context.Background()))

	assert.NoError(t, withTimeout(t, c.ClosedChan()))
	// OnDone already ran by the time ClosedChan fired.
	select {
	case <-consumerDone:
	default:
		t.Fatal("consumer OnDone was not called")
	}
	assert.NoError(t, p.Wait())
	select {
	case <-producerDone:
	default:
		t.Fatal("producer OnDone was not called")
	}
	assert.Equal(t, []string{"a", "b", "c"}, destination)
}

func TestTaskStartsOnlyOnce(t *testing.T) {
	b := newTestBuffer[int](t, 2)
	p := NewProducer([]int{1}, b)

	require.NoError(t, p.Run(context.Background()))
	assert.ErrorIs(t, p.Run(context.Background()), ErrAlreadyStarted)
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

// TestConsumerStop verifies a consumer blocked on an empty buffer can be
// stopped and that the cancellation ends it in the failed state.
func TestConsumerStop(t *testing.T) {
	b := newTestBuffer[int](t, 2)
	var destination []int
	c := NewConsumer(b, &destination)

	assert.NoError(t, c.Stop(), "stopping an unstarted task is a no-op")
	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return c.State() == StateRunning }, testTimeout, time.Millisecond)

	assert.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Err(), ErrCancelled)
	assert.ErrorIs(t, c.Err(), context.Canceled)
	assert.Empty(t, destination)
}

// TestProducerCancelledWhileBlocked verifies a producer blocked on a full
// buffer returns when its context ends.
func TestProducerCancelledWhileBlocked(t *testing.T) {
	b := newTestBuffer[int](t, 1)
	p := NewProducer([]int{1, 2, 3}, b)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, 1, p.Sent())
	assert.Equal(t, 1, b.Len())
}

func panickingSeq(items ...int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
		panic("source exploded")
	}
}

func TestProducerPanicBecomesError(t *testing.T) {
	b := newTestBuffer[int](t, 5)
	p := NewSeqProducer(panickingSeq(1, 2), b)

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrTaskPanicked)
	assert.Contains(t, err.Error(), "source exploded")
	assert.Equal(t, StateFailed, p.State())
	// No marker: the items put before the panic are all that is there.
	assert.Equal(t, 2, b.Len())
}
