package streamkit

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// settings is shared by the constructors of the metering components.
type settings struct {
	clock           clock.Clock
	logger          *zap.Logger
	sampleThreshold time.Duration
	maxChunkSize    int
}

// Option configures a RateLimiter, AdaptiveMeter or Speedometer.
type Option func(*settings)

// WithClock sets the clock used for all time measurement and sleeping.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithLogger sets the logger. Without it, output goes to the library debug
// logger and only appears after EnableDebug.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithSampleThreshold sets how often an AdaptiveMeter publishes samples.
func WithSampleThreshold(d time.Duration) Option {
	return func(s *settings) {
		s.sampleThreshold = d
	}
}

// WithMaxChunkSize caps the chunk size an AdaptiveMeter may grow to.
func WithMaxChunkSize(n int) Option {
	return func(s *settings) {
		s.maxChunkSize = n
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.maxChunkSize <= 0 {
		s.maxChunkSize = MaxChunkSize
	}
	return s
}

func (s *settings) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return debugLogger()
}
