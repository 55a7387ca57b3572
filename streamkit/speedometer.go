package streamkit

import (
	"github.com/showwin/streamkit/streamkit/control"
	"github.com/showwin/streamkit/streamkit/internal"
)

// smoothingFactor is the weight of the previous speed in the exponential
// moving average of the current speed.
const smoothingFactor = 0.5

// Speedometer turns cumulative byte counts into an average speed since
// start and an exponentially smoothed current speed.
//
// A Speedometer is not safe for concurrent use.
type Speedometer struct {
	total     *internal.Timer
	sinceLast *internal.Timer

	lastTotalBytes int64
	lastSpeed      float64
}

func NewSpeedometer(opts ...Option) *Speedometer {
	s := newSettings(opts)
	return &Speedometer{
		total:     internal.NewTimer(s.clock),
		sinceLast: internal.NewTimer(s.clock),
	}
}

// Measure records that totalBytes have been moved so far and returns the
// resulting sample.
func (sm *Speedometer) Measure(totalBytes int64) control.Sample {
	elapsed := sm.total.Elapsed()
	elapsedSeconds := elapsed.Seconds()

	var averageSpeed float64
	if elapsedSeconds > 0 {
		averageSpeed = float64(totalBytes) / elapsedSeconds
	}

	msSinceLast := sm.sinceLast.ElapsedMilliseconds()
	sm.sinceLast.Reset()

	deltaBytes := float64(totalBytes - sm.lastTotalBytes)
	rawSpeed := deltaBytes
	if msSinceLast > 0 {
		rawSpeed = deltaBytes * 1000 / float64(msSinceLast)
	}
	currentSpeed := smoothingFactor*sm.lastSpeed + (1-smoothingFactor)*rawSpeed

	sm.lastSpeed = currentSpeed
	sm.lastTotalBytes = totalBytes

	return control.Sample{
		Elapsed:      elapsed,
		TotalBytes:   totalBytes,
		AverageSpeed: averageSpeed,
		CurrentSpeed: currentSpeed,
		RawSpeed:     rawSpeed,
	}
}

// Reset starts a new measurement from zero.
func (sm *Speedometer) Reset() {
	sm.total.Reset()
	sm.sinceLast.Reset()
	sm.lastTotalBytes = 0
	sm.lastSpeed = 0
}
