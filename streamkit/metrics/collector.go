// Package metrics exports progress samples as Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/showwin/streamkit/streamkit/control"
	"go.uber.org/zap"
)

// Collector turns samples into gauges, counters and a speed histogram,
// labelled by transfer direction. It is safe for concurrent use.
type Collector struct {
	transferredBytes *prometheus.GaugeVec
	averageSpeed     *prometheus.GaugeVec
	currentSpeed     *prometheus.GaugeVec
	elapsedSeconds   *prometheus.GaugeVec
	samplesTotal     *prometheus.CounterVec
	speedHistogram   *prometheus.HistogramVec

	logger *zap.Logger
	mu     sync.Mutex
	last   map[control.Direction]control.Sample
}

// NewCollector registers the metrics of one pipeline with reg. A nil reg
// registers with the default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	labels := []string{"direction"}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
		last:   make(map[control.Direction]control.Sample),
	}

	c.transferredBytes = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transferred_bytes",
			Help:      "Bytes moved since the stream was opened",
		},
		labels,
	)

	c.averageSpeed = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_speed_bytes_per_second",
			Help:      "Average speed since the stream was opened",
		},
		labels,
	)

	c.currentSpeed = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_speed_bytes_per_second",
			Help:      "Smoothed speed of the latest interval",
		},
		labels,
	)

	c.elapsedSeconds = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elapsed_seconds",
			Help:      "Time since the stream was opened",
		},
		labels,
	)

	c.samplesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Number of progress samples observed",
		},
		labels,
	)

	c.speedHistogram = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_speed_bytes_per_second",
			Help:      "Distribution of raw per-sample speeds",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		labels,
	)

	return c
}

// Record stores one sample for the given direction.
func (c *Collector) Record(direction control.Direction, sample control.Sample) {
	label := direction.String()

	c.mu.Lock()
	prev, seen := c.last[direction]
	c.last[direction] = sample
	c.mu.Unlock()

	if seen && sample.TotalBytes < prev.TotalBytes {
		c.logger.Warn("byte total went backwards",
			zap.String("direction", label),
			zap.Int64("previous", prev.TotalBytes),
			zap.Int64("current", sample.TotalBytes),
		)
	}

	c.transferredBytes.WithLabelValues(label).Set(float64(sample.TotalBytes))
	c.averageSpeed.WithLabelValues(label).Set(sample.AverageSpeed)
	c.currentSpeed.WithLabelValues(label).Set(sample.CurrentSpeed)
	c.elapsedSeconds.WithLabelValues(label).Set(sample.Elapsed.Seconds())
	c.samplesTotal.WithLabelValues(label).Inc()
	c.speedHistogram.WithLabelValues(label).Observe(sample.RawSpeed)
}

// Subscriber returns a subscriber that records into c under direction.
func (c *Collector) Subscriber(direction control.Direction) control.Subscriber {
	return func(sample control.Sample) {
		c.Record(direction, sample)
	}
}

// Last returns the most recent sample recorded for direction.
func (c *Collector) Last(direction control.Direction) (control.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.last[direction]
	return s, ok
}
