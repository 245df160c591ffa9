// Package metrics exposes prometheus collectors for handoff buffers and the
// tasks attached to them. Collectors record regardless of registration;
// call Register to export them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "handoff"

// Operation label values for the wait histogram.
const (
	OperationPut = "put"
	OperationGet = "get"
)

var (
	bufferItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "buffer_items",
			Help:      "Number of items currently held by the buffer.",
		},
		[]string{"buffer"},
	)
	bufferCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "buffer_capacity",
			Help:      "Configured capacity of the buffer.",
		},
		[]string{"buffer"},
	)
	putTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "buffer_put_total",
			Help:      "Count of items enqueued, end-of-stream markers included.",
		},
		[]string{"buffer"},
	)
	getTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "buffer_get_total",
			Help:      "Count of items dequeued, end-of-stream markers included.",
		},
		[]string{"buffer"},
	)
	waitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "buffer_wait_seconds",
			Help:      "Time a caller spent blocked on a full (put) or empty (get) buffer.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"buffer", "operation"},
	)
	taskTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "task_transitions_total",
			Help:      "Count of producer and consumer state transitions, by destination state.",
		},
		[]string{"task", "state"},
	)
)

var registerMetrics sync.Once

// Register all metrics with the given registerer. Only the first call has
// any effect.
func Register(registerer prometheus.Registerer) {
	registerMetrics.Do(func() {
		registerAll(registerer)
	})
}

func registerAll(registerer prometheus.Registerer) {
	registerer.MustRegister(bufferItems)
	registerer.MustRegister(bufferCapacity)
	registerer.MustRegister(putTotal)
	registerer.MustRegister(getTotal)
	registerer.MustRegister(waitSeconds)
	registerer.MustRegister(taskTransitions)
}

// RecordBufferCapacity records the capacity of a newly created buffer.
func RecordBufferCapacity(buffer string, capacity int) {
	bufferCapacity.WithLabelValues(buffer).Set(float64(capacity))
}

// RecordBufferItems records the current length of a buffer.
func RecordBufferItems(buffer string, n int) {
	bufferItems.WithLabelValues(buffer).Set(float64(n))
}

// RecordPut counts one enqueued item.
func RecordPut(buffer string) {
	putTotal.WithLabelValues(buffer).Inc()
}

// RecordGet counts one dequeued item.
func RecordGet(buffer string) {
	getTotal.WithLabelValues(buffer).Inc()
}

// RecordWait records how long a put or get was blocked. Calls that never
// waited are not recorded.
func RecordWait(buffer, operation string, waited time.Duration) {
	if waited <= 0 {
		return
	}
	waitSeconds.WithLabelValues(buffer, operation).Observe(waited.Seconds())
}

// RecordTaskTransition counts a task entering a state.
func RecordTaskTransition(task, state string) {
	taskTransitions.WithLabelValues(task, state).Inc()
}
