package streamkit

import (
	"context"
	"io"
	"time"

	"github.com/showwin/streamkit/streamkit/control"
)

type streamConfig struct {
	throttleReads  bool
	throttleWrites bool
	interval       time.Duration
	opts           []Option
}

// StreamOption configures a ThrottledStream or MeteringStream.
type StreamOption func(*streamConfig)

// ThrottleReads enables or disables throttling of Read. Default on.
func ThrottleReads(enable bool) StreamOption {
	return func(c *streamConfig) {
		c.throttleReads = enable
	}
}

// ThrottleWrites enables or disables throttling of Write. Default off.
func ThrottleWrites(enable bool) StreamOption {
	return func(c *streamConfig) {
		c.throttleWrites = enable
	}
}

// WithInterval sets the window length of a ThrottledStream. Default 1s.
func WithInterval(d time.Duration) StreamOption {
	return func(c *streamConfig) {
		c.interval = d
	}
}

// WithOptions passes options on to the limiters or meters of a stream.
func WithOptions(opts ...Option) StreamOption {
	return func(c *streamConfig) {
		c.opts = append(c.opts, opts...)
	}
}

func newStreamConfig(opts []StreamOption) *streamConfig {
	c := &streamConfig{throttleReads: true, interval: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		c.interval = time.Second
	}
	return c
}

// ThrottledStream limits how fast data is read from or written to a base
// stream. Everything but Read and Write is forwarded unchanged.
//
// A read that gets fewer bytes from the base stream than the window still
// allows returns early, treating the short read as the end of the data.
type ThrottledStream struct {
	control.Stream
	ctx    context.Context
	cfg    *streamConfig
	reads  *RateLimiter
	writes *RateLimiter
}

// NewThrottledStream wraps base so that at most bytesPerSecond bytes pass
// per second. ctx bounds every sleep of the stream.
func NewThrottledStream(ctx context.Context, base control.Stream, bytesPerSecond int, opts ...StreamOption) *ThrottledStream {
	cfg := newStreamConfig(opts)
	bytesPerInterval := int(int64(bytesPerSecond) * int64(cfg.interval) / int64(time.Second))
	if bytesPerSecond > 0 && bytesPerInterval == 0 {
		bytesPerInterval = 1
	}
	ts := &ThrottledStream{Stream: base, ctx: ctx, cfg: cfg}
	ts.reads = NewRateLimiter(cfg.interval, bytesPerInterval, control.ReaderFunc(base), control.ExitOnShort, cfg.opts...)
	ts.writes = NewRateLimiter(cfg.interval, bytesPerInterval, control.WriterFunc(base), control.NeverExit, cfg.opts...)
	return ts
}

func (ts *ThrottledStream) Read(p []byte) (int, error) {
	if !ts.cfg.throttleReads {
		return ts.Stream.Read(p)
	}
	return ts.reads.Throttle(ts.ctx, p, 0, len(p))
}

func (ts *ThrottledStream) Write(p []byte) (int, error) {
	if !ts.cfg.throttleWrites {
		return ts.Stream.Write(p)
	}
	n, err := ts.writes.Throttle(ts.ctx, p, 0, len(p))
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// ListenerID identifies a listener registered on a MeteringStream.
type ListenerID struct {
	read  int
	write int
}

// MeteringStream measures the speed of reads from and writes to a base
// stream. Calls are split into chunks sized for one sample per interval,
// so listeners receive steady feedback even for one large call.
type MeteringStream struct {
	control.Stream
	ctx    context.Context
	reads  *AdaptiveMeter
	writes *AdaptiveMeter
}

// NewMeteringStream wraps base with meters targeting interval per sub-call.
func NewMeteringStream(ctx context.Context, base control.Stream, interval time.Duration, opts ...StreamOption) *MeteringStream {
	cfg := newStreamConfig(append([]StreamOption{WithInterval(interval)}, opts...))
	return &MeteringStream{
		Stream: base,
		ctx:    ctx,
		reads:  NewAdaptiveMeter(cfg.interval, control.ReaderFunc(base), control.ExitOnShort, cfg.opts...),
		writes: NewAdaptiveMeter(cfg.interval, control.WriterFunc(base), control.ExitOnShort, cfg.opts...),
	}
}

func (ms *MeteringStream) Read(p []byte) (int, error) {
	return ms.reads.Meter(ms.ctx, p, 0, len(p))
}

func (ms *MeteringStream) Write(p []byte) (int, error) {
	n, err := ms.writes.Meter(ms.ctx, p, 0, len(p))
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// AddListener registers fn for both reads and writes.
func (ms *MeteringStream) AddListener(fn control.Subscriber) ListenerID {
	return ListenerID{read: ms.reads.Subscribe(fn), write: ms.writes.Subscribe(fn)}
}

func (ms *MeteringStream) AddReadListener(fn control.Subscriber) ListenerID {
	return ListenerID{read: ms.reads.Subscribe(fn)}
}

func (ms *MeteringStream) AddWriteListener(fn control.Subscriber) ListenerID {
	return ListenerID{write: ms.writes.Subscribe(fn)}
}

// RemoveListener removes every registration behind id.
func (ms *MeteringStream) RemoveListener(id ListenerID) {
	ms.RemoveReadListener(id)
	ms.RemoveWriteListener(id)
}

func (ms *MeteringStream) RemoveReadListener(id ListenerID) {
	if id.read != 0 {
		ms.reads.Unsubscribe(id.read)
	}
}

func (ms *MeteringStream) RemoveWriteListener(id ListenerID) {
	if id.write != 0 {
		ms.writes.Unsubscribe(id.write)
	}
}

// ReadMeter and WriteMeter expose the underlying meters.
func (ms *MeteringStream) ReadMeter() *AdaptiveMeter { return ms.reads }

func (ms *MeteringStream) WriteMeter() *AdaptiveMeter { return ms.writes }
