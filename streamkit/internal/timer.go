package internal

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer measures the time elapsed since its last reset.
// It is not safe for concurrent use.
type Timer struct {
	clock clock.Clock
	start time.Time
}

// NewTimer creates a timer that is already started. A nil clock
// falls back to the wall clock.
func NewTimer(c clock.Clock) *Timer {
	if c == nil {
		c = clock.New()
	}
	t := &Timer{clock: c}
	t.Reset()
	return t
}

// Reset restarts the measurement at the current instant.
func (t *Timer) Reset() {
	t.start = t.clock.Now()
}

// Elapsed returns the time since the last reset, never negative.
func (t *Timer) Elapsed() time.Duration {
	d := t.clock.Since(t.start)
	if d < 0 {
		return 0
	}
	return d
}

func (t *Timer) ElapsedMilliseconds() int64 {
	return t.Elapsed().Milliseconds()
}

func (t *Timer) ElapsedNanoseconds() int64 {
	return t.Elapsed().Nanoseconds()
}

func (t *Timer) ElapsedSeconds() float64 {
	return t.Elapsed().Seconds()
}
