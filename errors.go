package handoff

import "errors"

var (
	// ErrInvalidCapacity is returned when a Buffer is created with a capacity
	// below one. A zero capacity buffer would block every Put forever.
	ErrInvalidCapacity = errors.New("buffer capacity must be positive")

	// ErrCancelled is returned by the context aware buffer operations when the
	// context ends before the operation could complete. It wraps the context's
	// error so errors.Is(err, context.Canceled) also holds.
	ErrCancelled = errors.New("buffer operation cancelled")

	// ErrTaskPanicked wraps the value recovered from a producer or consumer
	// whose body panicked.
	ErrTaskPanicked = errors.New("task panicked")

	// ErrAlreadyStarted is returned when Run or Start is called on a task
	// that has already been started.
	ErrAlreadyStarted = errors.New("task already started")
)

// ErrNotStarted is returned when waiting on a Pair that was never started.
var ErrNotStarted = errors.New("pair not started")
