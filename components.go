package handoff

// Component is anything with a goroutine lifecycle that can be stopped.
// Producer, Consumer and Pair all implement it.
type Component interface {
	// Stop stops the component and waits for it to finish
	Stop() error

	// IsRunning returns true if the component is currently running
	IsRunning() bool
}

var (
	_ Component = (*Producer[any])(nil)
	_ Component = (*Consumer[any])(nil)
	_ Component = (*Pair[any])(nil)
)
