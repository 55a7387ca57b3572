package main

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/showwin/streamkit/streamkit"
	"github.com/showwin/streamkit/streamkit/control"
	"github.com/showwin/streamkit/streamkit/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pipeline buffers a source in a ChunkStore, throttling and metering the
// ingest, and then drains the store into a destination.
type Pipeline struct {
	cfg       *Config
	pool      *streamkit.SegmentPool
	clock     clock.Clock
	logger    *zap.Logger
	collector *metrics.Collector

	ingestTrace *control.Tracer
	drainTrace  *control.Tracer
}

func NewPipeline(cfg *Config, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		pool:        streamkit.NewSegmentPool(int(cfg.ChunkSize)),
		clock:       clock.New(),
		logger:      logger,
		collector:   collector,
		ingestTrace: control.NewHistoryTracer(cfg.TraceSize),
		drainTrace:  control.NewHistoryTracer(cfg.TraceSize),
	}
}

// Progress receives the samples of both phases of a run.
type Progress struct {
	Ingest control.Subscriber
	Drain  control.Subscriber
}

// Result describes one completed run.
type Result struct {
	Timestamp       outputTime      `json:"timestamp"`
	Bytes           int64           `json:"bytes"`
	OutputBytes     int64           `json:"output_bytes"`
	Compression     string          `json:"compression,omitempty"`
	Limit           int64           `json:"limit"`
	Segments        int             `json:"segments"`
	IngestTime      outputDuration  `json:"ingest_time"`
	DrainTime       outputDuration  `json:"drain_time"`
	IngestSpeed     float64         `json:"ingest_speed"`
	DrainSpeed      float64         `json:"drain_speed"`
	IngestSummary   control.Summary `json:"ingest_summary"`
	DrainSummary    control.Summary `json:"drain_summary"`
	ChunkSizeIngest int             `json:"adapted_chunk_ingest"`
	ChunkSizeDrain  int             `json:"adapted_chunk_drain"`
}

// Run copies src into dst through the pipeline.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, dst io.Writer, progress Progress) (res *Result, err error) {
	var storeOpts []streamkit.StoreOption
	if p.cfg.Fixed {
		storeOpts = append(storeOpts, streamkit.WithFixedSize())
	}
	storeOpts = append(storeOpts, streamkit.WithStoreLogger(p.logger))
	store := streamkit.NewChunkStore(p.pool, p.cfg.Chunks, storeOpts...)
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	opts := []streamkit.Option{streamkit.WithClock(p.clock), streamkit.WithLogger(p.logger)}
	metered := streamkit.NewMeteringStream(ctx, store, p.cfg.Interval, streamkit.WithOptions(opts...))
	p.listen(metered, progress)
	throttled := streamkit.NewThrottledStream(ctx, metered, int(p.cfg.Limit),
		streamkit.WithInterval(p.cfg.Interval),
		streamkit.ThrottleReads(false),
		streamkit.ThrottleWrites(true),
		streamkit.WithOptions(opts...),
	)

	res = &Result{
		Timestamp:   outputTime(p.clock.Now()),
		Compression: p.cfg.Compress,
		Limit:       int64(p.cfg.Limit),
	}

	start := p.clock.Now()
	res.Bytes, err = streamkit.WriteAllTo(src, throttled)
	res.IngestTime = outputDuration(p.clock.Since(start))
	if err != nil {
		return res, err
	}
	p.logger.Debug("ingest finished", zap.Int64("bytes", res.Bytes), zap.Int("segments", store.Segments()))

	if err := store.SetPosition(0); err != nil {
		return res, err
	}
	level, _ := parseLevel(p.cfg.Level)
	counter := &countingWriter{w: dst}
	zw, err := streamkit.Compress(counter, p.cfg.Compress, level)
	if err != nil {
		return res, err
	}

	start = p.clock.Now()
	_, copyErr := streamkit.WriteAllTo(metered, zw)
	closeErr := zw.Close()
	res.DrainTime = outputDuration(p.clock.Since(start))
	res.OutputBytes = counter.n
	if err := multierr.Combine(copyErr, closeErr); err != nil {
		return res, err
	}

	res.Segments = store.Segments()
	res.IngestSpeed = speed(res.Bytes, time.Duration(res.IngestTime))
	res.DrainSpeed = speed(res.Bytes, time.Duration(res.DrainTime))
	res.IngestSummary = p.ingestTrace.Summary()
	res.DrainSummary = p.drainTrace.Summary()
	res.ChunkSizeIngest = metered.WriteMeter().ChunkSize()
	res.ChunkSizeDrain = metered.ReadMeter().ChunkSize()
	return res, nil
}

func (p *Pipeline) listen(ms *streamkit.MeteringStream, progress Progress) {
	ms.AddWriteListener(p.ingestTrace.Observe)
	ms.AddReadListener(p.drainTrace.Observe)
	if p.collector != nil {
		ms.AddWriteListener(p.collector.Subscriber(control.DirectionWrite))
		ms.AddReadListener(p.collector.Subscriber(control.DirectionRead))
	}
	if progress.Ingest != nil {
		ms.AddWriteListener(progress.Ingest)
	}
	if progress.Drain != nil {
		ms.AddReadListener(progress.Drain)
	}
}

func speed(bytes int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(bytes) / d.Seconds()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
