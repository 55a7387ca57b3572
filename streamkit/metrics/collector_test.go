package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/showwin/streamkit/streamkit/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), prometheus.NewRegistry(), zap.NewNop())

	assert.NotNil(t, collector.transferredBytes)
	assert.NotNil(t, collector.averageSpeed)
	assert.NotNil(t, collector.currentSpeed)
	assert.NotNil(t, collector.samplesTotal)
	assert.NotNil(t, collector.speedHistogram)
}

func TestCollector_Record(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), prometheus.NewRegistry(), zap.NewNop())
	sample := control.Sample{
		Elapsed:      2 * time.Second,
		TotalBytes:   4096,
		AverageSpeed: 2048,
		CurrentSpeed: 1500,
		RawSpeed:     1000,
	}

	collector.Record(control.DirectionWrite, sample)

	assert.Equal(t, 4096.0, testutil.ToFloat64(collector.transferredBytes.WithLabelValues("write")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(collector.averageSpeed.WithLabelValues("write")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(collector.currentSpeed.WithLabelValues("write")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.elapsedSeconds.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.samplesTotal.WithLabelValues("write")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.speedHistogram))

	last, ok := collector.Last(control.DirectionWrite)
	require.True(t, ok)
	assert.Equal(t, sample, last)
	_, ok = collector.Last(control.DirectionRead)
	assert.False(t, ok)
}

func TestCollector_Subscriber(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), prometheus.NewRegistry(), zap.NewNop())
	reads := collector.Subscriber(control.DirectionRead)
	writes := collector.Subscriber(control.DirectionWrite)

	reads(control.Sample{TotalBytes: 10})
	reads(control.Sample{TotalBytes: 20})
	writes(control.Sample{TotalBytes: 5})

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.samplesTotal.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.samplesTotal.WithLabelValues("write")))
	assert.Equal(t, 20.0, testutil.ToFloat64(collector.transferredBytes.WithLabelValues("read")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.transferredBytes))
}

func TestCollector_WarnsWhenTotalGoesBackwards(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	collector := NewCollector(nextTestNamespace(), prometheus.NewRegistry(), zap.New(core))

	collector.Record(control.DirectionRead, control.Sample{TotalBytes: 100})
	collector.Record(control.DirectionRead, control.Sample{TotalBytes: 50})

	entries := logs.FilterMessage("byte total went backwards").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "metrics", entries[0].ContextMap()["component"])
}

func TestCollector_Exposition(t *testing.T) {
	namespace := nextTestNamespace()
	reg := prometheus.NewRegistry()
	collector := NewCollector(namespace, reg, nil)
	collector.Record(control.DirectionRead, control.Sample{TotalBytes: 7})

	expected := fmt.Sprintf(`
# HELP %[1]s_transferred_bytes Bytes moved since the stream was opened
# TYPE %[1]s_transferred_bytes gauge
%[1]s_transferred_bytes{direction="read"} 7
`, namespace)
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), namespace+"_transferred_bytes")
	assert.NoError(t, err)
}

func TestCollector_DuplicateRegistrationPanics(t *testing.T) {
	namespace := nextTestNamespace()
	reg := prometheus.NewRegistry()
	NewCollector(namespace, reg, nil)

	assert.Panics(t, func() { NewCollector(namespace, reg, nil) })
}
