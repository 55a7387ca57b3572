package streamkit

import (
	"context"
	"math"
	"time"

	"github.com/showwin/streamkit/streamkit/control"
	"github.com/showwin/streamkit/streamkit/internal"
	"go.uber.org/zap"
)

const (
	// MaxChunkSize is the default upper bound of an adaptive chunk.
	MaxChunkSize = math.MaxInt32

	// maxGrowthRatio caps how much a chunk may grow after one sub-call.
	maxGrowthRatio = 20
	// deadBand is the relative timing error tolerated before retuning.
	deadBand = 0.1
	// startSpeed is the assumed initial speed in bytes per second.
	startSpeed = 1024
)

// AdaptiveMeter slices a transfer into sub-calls and retunes their size so
// each one takes about one interval, publishing progress samples to its
// subscribers along the way.
//
// Subscribers run synchronously on the caller's goroutine in registration
// order. A panicking subscriber is recovered and logged.
//
// An AdaptiveMeter is not safe for concurrent use.
type AdaptiveMeter struct {
	settings *settings
	fn       control.TransferFunc
	exit     control.ExitPredicate

	interval        time.Duration
	chunkSize       int
	sampleThreshold time.Duration
	sampleTimer     *internal.Timer
	operationTimer  *internal.Timer
	speedometer     *Speedometer
	totalBytes      int64

	subscribers []subscription
	nextID      int
}

type subscription struct {
	id int
	fn control.Subscriber
}

// NewAdaptiveMeter wraps fn. exit is called with the bytes moved by a
// sub-call and the bytes requested from it; a nil exit never ends an
// operation early. The first chunk assumes a speed of 1 KiB/s.
func NewAdaptiveMeter(interval time.Duration, fn control.TransferFunc, exit control.ExitPredicate, opts ...Option) *AdaptiveMeter {
	if interval <= 0 {
		interval = time.Second
	}
	if exit == nil {
		exit = control.NeverExit
	}
	s := newSettings(opts)
	threshold := s.sampleThreshold
	if threshold <= 0 {
		threshold = interval
	}
	chunkSize := int(min(max(int64(startSpeed)*int64(time.Second)/int64(interval), 1), int64(s.maxChunkSize)))
	return &AdaptiveMeter{
		settings:        s,
		fn:              fn,
		exit:            exit,
		interval:        interval,
		chunkSize:       chunkSize,
		sampleThreshold: threshold,
		sampleTimer:     internal.NewTimer(s.clock),
		operationTimer:  internal.NewTimer(s.clock),
		speedometer:     NewSpeedometer(WithClock(s.clock)),
	}
}

// ChunkSize returns the size the next sub-call will request at most.
func (m *AdaptiveMeter) ChunkSize() int { return m.chunkSize }

// TotalBytes returns the bytes moved over the meter's lifetime.
func (m *AdaptiveMeter) TotalBytes() int64 { return m.totalBytes }

// Subscribe registers fn and returns an id for Unsubscribe.
func (m *AdaptiveMeter) Subscribe(fn control.Subscriber) int {
	m.nextID++
	m.subscribers = append(m.subscribers, subscription{id: m.nextID, fn: fn})
	return m.nextID
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (m *AdaptiveMeter) Unsubscribe(id int) {
	for i, sub := range m.subscribers {
		if sub.id == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Meter moves up to count bytes at buf[offset:] through the wrapped
// function in adaptively sized sub-calls.
func (m *AdaptiveMeter) Meter(ctx context.Context, buf []byte, offset, count int) (int, error) {
	if err := checkWindow(buf, offset, count); err != nil {
		return 0, err
	}
	total := 0
	for total < count {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		chunk := min(m.chunkSize, count-total)

		m.operationTimer.Reset()
		moved, err := m.fn(buf, offset+total, chunk)
		m.adapt(m.operationTimer.ElapsedNanoseconds())

		total += moved
		m.totalBytes += int64(moved)

		if m.sampleTimer.Elapsed() >= m.sampleThreshold {
			m.publish(m.speedometer.Measure(m.totalBytes))
			m.sampleTimer.Reset()
		}
		if err != nil {
			return total, err
		}
		if moved == 0 || m.exit(moved, chunk) {
			return total, nil
		}
	}
	return total, nil
}

// adapt scales the chunk by how far the last sub-call missed the interval.
func (m *AdaptiveMeter) adapt(elapsedNs int64) {
	ratio := math.Min(maxGrowthRatio, float64(m.interval.Nanoseconds()+1)/float64(elapsedNs+1))
	if math.Abs(ratio-1) <= deadBand {
		return
	}
	next := float64(m.chunkSize) * ratio
	switch {
	case next < 1:
		next = 1
	case next > float64(m.settings.maxChunkSize):
		next = float64(m.settings.maxChunkSize)
	}
	if int(next) != m.chunkSize {
		m.settings.log().Debug("meter chunk adapted", zap.Int("from", m.chunkSize), zap.Int("to", int(next)), zap.Float64("ratio", ratio))
	}
	m.chunkSize = int(next)
}

func (m *AdaptiveMeter) publish(sample control.Sample) {
	for _, sub := range m.subscribers {
		m.deliver(sub.fn, sample)
	}
}

func (m *AdaptiveMeter) deliver(fn control.Subscriber, sample control.Sample) {
	defer func() {
		if r := recover(); r != nil {
			m.settings.log().Warn("progress subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(sample)
}
