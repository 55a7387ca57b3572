package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/units"
	"github.com/showwin/streamkit/streamkit"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that reads from YAML either as a plain integer
// or with a unit suffix such as "64KiB" or "1MB".
type ByteSize int64

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = v
	return nil
}

func (b ByteSize) MarshalYAML() (any, error) {
	return units.Base2Bytes(b).String(), nil
}

func parseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}
	n, err := units.ParseBase2Bytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// Config is the run configuration of the streamkit command.
type Config struct {
	Limit       ByteSize      `yaml:"limit"` // bytes per second, 0 = unlimited
	Interval    time.Duration `yaml:"interval"`
	ChunkSize   ByteSize      `yaml:"chunk_size"`
	Chunks      int           `yaml:"chunks"`
	Fixed       bool          `yaml:"fixed"`
	Size        ByteSize      `yaml:"size"` // generated bytes when no source is given
	Compress    string        `yaml:"compress"`
	Level       string        `yaml:"level"`
	Unit        string        `yaml:"unit"`
	TraceSize   int           `yaml:"trace_size"`
	MetricsFile string        `yaml:"metrics_file"`
	Namespace   string        `yaml:"metrics_namespace"`
	Debug       bool          `yaml:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Interval:  time.Second,
		ChunkSize: streamkit.DefaultChunkSize,
		Chunks:    streamkit.DefaultNumberOfChunks,
		Size:      ByteSize(16 * units.MiB),
		Level:     "default",
		Unit:      "bytes",
		TraceSize: 64,
		Namespace: "streamkit",
	}
}

// LoadConfig starts from the defaults and overlays the YAML file at path.
// An empty path or a missing file leaves the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error
	if c.Limit < 0 {
		err = multierr.Append(err, errors.New("limit must not be negative"))
	}
	if c.Interval <= 0 {
		err = multierr.Append(err, errors.New("interval must be positive"))
	}
	if c.ChunkSize <= 0 {
		err = multierr.Append(err, errors.New("chunk_size must be positive"))
	}
	if c.Chunks <= 0 {
		err = multierr.Append(err, errors.New("chunks must be positive"))
	}
	if c.Size < 0 {
		err = multierr.Append(err, errors.New("size must not be negative"))
	}
	switch strings.ToLower(c.Compress) {
	case streamkit.CompressionNone, streamkit.CompressionGzip, streamkit.CompressionLZ4, streamkit.CompressionZstd:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", streamkit.ErrUnknownCompression, c.Compress))
	}
	if _, ok := parseLevel(c.Level); !ok {
		err = multierr.Append(err, fmt.Errorf("unknown compression level %q", c.Level))
	}
	if c.TraceSize <= 0 {
		err = multierr.Append(err, errors.New("trace_size must be positive"))
	}
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func parseLevel(s string) (streamkit.CompressionLevel, bool) {
	switch strings.ToLower(s) {
	case "fast":
		return streamkit.CompressionFast, true
	case "", "default":
		return streamkit.CompressionDefault, true
	case "best":
		return streamkit.CompressionBest, true
	default:
		return streamkit.CompressionDefault, false
	}
}
