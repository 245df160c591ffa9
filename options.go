package handoff

import "github.com/go-logr/logr"

// DefaultCapacity is the buffer capacity used by Run and NewPair when
// WithCapacity is not given.
const DefaultCapacity = 10

// DefaultName is the metrics label used when WithName is not given.
const DefaultName = "default"

// Config collects the settings shared by buffers, tasks and pairs. Each
// component reads only the fields it needs.
type Config struct {
	// Capacity of the buffer created by a Pair. Smaller values mean more
	// blocking, larger values mean more memory held by in-flight items.
	Capacity int
	// Name labels the buffer's metrics and the loggers of its tasks.
	Name   string
	Logger logr.Logger
}

// Option is a functional option for configuring handoff components.
type Option func(*Config)

// WithCapacity sets the capacity of the buffer a Pair creates.
func WithCapacity(capacity int) Option {
	return func(c *Config) {
		c.Capacity = capacity
	}
}

// WithName sets the name used in metrics labels and log output.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger logr.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func newConfig(opts ...Option) Config {
	c := Config{
		Capacity: DefaultCapacity,
		Name:     DefaultName,
		Logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
