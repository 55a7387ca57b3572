package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/showwin/streamkit/streamkit"
	"github.com/showwin/streamkit/streamkit/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	configPath  = kingpin.Flag("config", "YAML configuration file.").Short('c').Envar("STREAMKIT_CONFIG").String()
	limit       = kingpin.Flag("limit", "Throttle ingest to this many bytes per second, e.g. 64KiB. 0 means unlimited.").Short('l').Envar("STREAMKIT_LIMIT").Bytes()
	interval    = kingpin.Flag("interval", "Throttle window and metering interval.").Short('i').Duration()
	chunkSize   = kingpin.Flag("chunk-size", "Segment size of the buffer.").Bytes()
	chunks      = kingpin.Flag("chunks", "Initial number of buffer segments.").Int()
	fixed       = kingpin.Flag("fixed", "Never grow the buffer past its initial segments.").Bool()
	size        = kingpin.Flag("size", "Bytes to generate when no source is given.").Short('n').Bytes()
	compress    = kingpin.Flag("compress", "Compress the output: gzip, lz4 or zstd.").Short('z').Enum("gzip", "lz4", "zstd")
	level       = kingpin.Flag("level", "Compression level: fast, default or best.").Enum("fast", "default", "best")
	unit        = kingpin.Flag("unit", "Speed unit: bits, bytes, binary-bits or binary-bytes.").Short('u').String()
	jsonOutput  = kingpin.Flag("json", "Print the result as JSON.").Bool()
	unixOutput  = kingpin.Flag("unix", "Print plain progress lines instead of spinners.").Bool()
	metricsFile = kingpin.Flag("metrics-file", "Write Prometheus metrics to this textfile after the run.").Envar("STREAMKIT_METRICS_FILE").String()
	debug       = kingpin.Flag("debug", "Enable debug logging.").Short('d').Bool()

	srcArg = kingpin.Arg("src", "Source file, - for stdin. Generated data when omitted.").String()
	dstArg = kingpin.Arg("dst", "Destination file, - for stdout. Discarded when omitted.").String()
)

func main() {
	kingpin.Version("1.0.0")
	kingpin.Parse()

	cfg, err := LoadConfig(*configPath)
	checkError(err)
	applyFlags(cfg)
	checkError(cfg.Validate())

	logger, err := newLogger(cfg.Debug)
	checkError(err)
	if cfg.Debug {
		streamkit.EnableDebug(logger)
	}
	streamkit.SetUnit(streamkit.ParseUnit(cfg.Unit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, logger)
	stop()
	_ = logger.Sync()
	checkError(err)
}

// applyFlags overrides configuration values with the flags given on the
// command line.
func applyFlags(cfg *Config) {
	if *limit > 0 {
		cfg.Limit = ByteSize(*limit)
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *chunkSize > 0 {
		cfg.ChunkSize = ByteSize(*chunkSize)
	}
	if *chunks > 0 {
		cfg.Chunks = *chunks
	}
	if *size > 0 {
		cfg.Size = ByteSize(*size)
	}
	if *compress != "" {
		cfg.Compress = *compress
	}
	if *level != "" {
		cfg.Level = *level
	}
	if *unit != "" {
		cfg.Unit = *unit
	}
	if *metricsFile != "" {
		cfg.MetricsFile = *metricsFile
	}
	cfg.Fixed = cfg.Fixed || *fixed
	cfg.Debug = cfg.Debug || *debug
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger) (err error) {
	src, err := openSource(*srcArg, int64(cfg.Size))
	if err != nil {
		return err
	}
	dst, err := openDestination(*dstArg)
	if err != nil {
		return multierr.Append(err, src.Close())
	}
	defer func() {
		err = multierr.Combine(err, src.Close(), dst.Close())
	}()

	// Data on stdout leaves no room for spinners.
	report := io.Writer(os.Stdout)
	tm := InitTaskManager(*jsonOutput, *unixOutput || *dstArg == "-")
	if *dstArg == "-" {
		report = os.Stderr
		tm.out = os.Stderr
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Namespace, reg, logger)
	pipeline := NewPipeline(cfg, collector, logger)

	ingest := tm.Start("Ingest")
	drain := tm.Start("Drain")
	res, err := pipeline.Run(ctx, src, dst, Progress{Ingest: ingest.Progress(), Drain: drain.Progress()})
	if err != nil {
		err = ingest.Fail(err)
		drain.Complete()
		tm.Stop()
		return err
	}
	ingest.Complete()
	drain.Complete()
	tm.Stop()

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		logger.Debug("metrics written", zap.String("path", cfg.MetricsFile))
	}

	if *jsonOutput {
		b, err := res.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(report, string(b))
		return err
	}
	return res.WriteText(report)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func openSource(path string, size int64) (io.ReadCloser, error) {
	switch path {
	case "":
		return io.NopCloser(streamkit.NewRepeatReader(size)), nil
	case "-":
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func openDestination(path string) (io.WriteCloser, error) {
	switch path {
	case "":
		return nopWriteCloser{io.Discard}, nil
	case "-":
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func checkError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
