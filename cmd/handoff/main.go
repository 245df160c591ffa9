// Command handoff runs one producer and one consumer over a bounded buffer
// and prints what the consumer received.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"

	"github.com/panyam/handoff"
	"github.com/panyam/handoff/logging"
	"github.com/panyam/handoff/metrics"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts := NewOptions()
	fs := pflag.NewFlagSet("handoff", pflag.ContinueOnError)
	opts.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.Complete(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(opts.LogVerbosity)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	setupLog := logger.WithName("setup")
	setupLog.Info("Flags processed", "capacity", opts.Capacity, "count", opts.Count,
		"name", opts.Name, "timeout", opts.Timeout)

	metrics.Register(prometheus.DefaultRegisterer)

	dst, err := transfer(opts, logger)
	if err != nil {
		setupLog.Error(err, "Transfer failed", "received", len(dst))
		return err
	}
	fmt.Fprintln(out, dst)

	if opts.PrintMetrics {
		families, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			return fmt.Errorf("failed to gather metrics: %w", err)
		}
		return writeMetrics(out, families)
	}
	return nil
}

func transfer(opts *Options, logger logr.Logger) ([]int, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	source := make([]int, opts.Count)
	for i := range source {
		source[i] = i
	}
	return handoff.Run(ctx, source,
		handoff.WithCapacity(opts.Capacity),
		handoff.WithName(opts.Name),
		handoff.WithLogger(logger))
}

func writeMetrics(out io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
