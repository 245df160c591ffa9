package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Collectors are process-global, so counter tests compare deltas rather than
// absolute values.

func TestBufferCounters(t *testing.T) {
	puts := testutil.ToFloat64(putTotal.WithLabelValues("counters"))
	gets := testutil.ToFloat64(getTotal.WithLabelValues("counters"))

	RecordPut("counters")
	RecordPut("counters")
	RecordGet("counters")

	assert.Equal(t, puts+2, testutil.ToFloat64(putTotal.WithLabelValues("counters")))
	assert.Equal(t, gets+1, testutil.ToFloat64(getTotal.WithLabelValues("counters")))
}

func TestBufferGauges(t *testing.T) {
	RecordBufferCapacity("gauges", 4)
	RecordBufferItems("gauges", 3)
	RecordBufferItems("gauges", 1)

	assert.Equal(t, 4.0, testutil.ToFloat64(bufferCapacity.WithLabelValues("gauges")))
	assert.Equal(t, 1.0, testutil.ToFloat64(bufferItems.WithLabelValues("gauges")))
}

func TestRecordWaitSkipsZero(t *testing.T) {
	RecordWait("waits", OperationPut, 0)
	RecordWait("waits", OperationGet, 3*time.Millisecond)

	// Only the get produced a series, however often this runs.
	assert.Equal(t, 1, testutil.CollectAndCount(waitSeconds))
}

func TestRegisterAll(t *testing.T) {
	before := testutil.ToFloat64(taskTransitions.WithLabelValues("producer", "register"))
	RecordTaskTransition("producer", "register")

	registry := prometheus.NewRegistry()
	registerAll(registry)

	count, err := testutil.GatherAndCount(registry, "handoff_task_transitions_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(taskTransitions.WithLabelValues("producer", "register")))
}

func TestRegisterOnlyOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	Register(registry)
	// Later calls are no-ops rather than duplicate registration panics.
	assert.NotPanics(t, func() { Register(registry) })
}
