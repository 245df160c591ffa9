package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/panyam/handoff"
	"github.com/panyam/handoff/logging"
)

// Options contains the command-line configuration for the demo driver.
type Options struct {
	Capacity     int           // Capacity of the buffer between producer and consumer.
	Count        int           // Number of integers the producer generates.
	Name         string        // Name used in metric labels and logs.
	Timeout      time.Duration // Upper bound for the whole run, 0 for none.
	LogVerbosity int           // Number for the log level verbosity.
	PrintMetrics bool          // Print gathered metrics after the run.
}

// NewOptions returns a new Options struct initialized with default values.
func NewOptions() *Options {
	return &Options{
		Capacity:     handoff.DefaultCapacity,
		Count:        20,
		Name:         "demo",
		LogVerbosity: logging.DEFAULT,
	}
}

// AddFlags binds the Options fields to command-line flags on the given FlagSet.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	fs.IntVar(&opts.Capacity, "capacity", opts.Capacity,
		"Capacity of the buffer. Smaller values block more, larger values hold more items in flight.")
	fs.IntVar(&opts.Count, "count", opts.Count,
		"Number of integers to hand from producer to consumer.")
	fs.StringVar(&opts.Name, "name", opts.Name,
		"Name used in metric labels and log output.")
	fs.DurationVar(&opts.Timeout, "timeout", opts.Timeout,
		"Abort the run after this long. 0 disables the timeout.")
	fs.IntVarP(&opts.LogVerbosity, "v", "v", opts.LogVerbosity,
		"Number for the log level verbosity.")
	fs.BoolVar(&opts.PrintMetrics, "print-metrics", opts.PrintMetrics,
		"Print the gathered metrics in text exposition format after the run.")
}

// Complete performs post-processing of parsed command-line arguments.
func (opts *Options) Complete() error {
	if opts.Name == "" {
		opts.Name = handoff.DefaultName
	}
	return nil
}

// Validate checks the parsed options.
func (opts *Options) Validate() error {
	var errs []error
	if opts.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("--capacity must be positive, got %d", opts.Capacity))
	}
	if opts.Count < 0 {
		errs = append(errs, fmt.Errorf("--count must not be negative, got %d", opts.Count))
	}
	if opts.Timeout < 0 {
		errs = append(errs, fmt.Errorf("--timeout must not be negative, got %s", opts.Timeout))
	}
	return errors.Join(errs...)
}
