package control

import "github.com/showwin/streamkit/streamkit/internal"

const DefaultMaxTraceSize = 64

// Tracer keeps the most recent samples of a transfer.
type Tracer struct {
	ts      []Sample
	maxSize int
}

func NewHistoryTracer(size int) *Tracer {
	if size <= 0 {
		size = DefaultMaxTraceSize
	}
	return &Tracer{
		ts:      make([]Sample, 0, size),
		maxSize: size,
	}
}

// Push appends a sample, evicting the oldest one when full.
func (rs *Tracer) Push(value Sample) {
	if len(rs.ts) == rs.maxSize {
		copy(rs.ts, rs.ts[1:])
		rs.ts = rs.ts[:len(rs.ts)-1]
	}
	rs.ts = append(rs.ts, value)
}

// Observe is a Subscriber recording every sample.
func (rs *Tracer) Observe(value Sample) {
	rs.Push(value)
}

func (rs *Tracer) Latest() (Sample, bool) {
	if len(rs.ts) > 0 {
		return rs.ts[len(rs.ts)-1], true
	}
	return Sample{}, false
}

// All returns a copy of the retained samples, oldest first.
func (rs *Tracer) All() []Sample {
	out := make([]Sample, len(rs.ts))
	copy(out, rs.ts)
	return out
}

func (rs *Tracer) Len() int {
	return len(rs.ts)
}

func (rs *Tracer) Clean() {
	rs.ts = rs.ts[:0]
}

// Summary describes the current speeds seen by a Tracer.
type Summary struct {
	Samples           int     `json:"samples"`
	Mean              float64 `json:"mean"`
	StandardDeviation float64 `json:"std_dev"`
	CV                float64 `json:"cv"`
	EWMA              float64 `json:"ewma"`
	Stable            bool    `json:"stable"`
}

// Summary computes statistics over the current speeds of the retained
// samples after dropping 3-sigma outliers.
func (rs *Tracer) Summary() Summary {
	speeds := make([]float64, 0, len(rs.ts))
	for _, s := range rs.ts {
		speeds = append(speeds, s.CurrentSpeed)
	}
	speeds = internal.PautaFilter(speeds)
	if len(speeds) == 0 {
		return Summary{}
	}
	w := internal.NewWelford(len(speeds))
	stable := false
	for _, v := range speeds {
		stable = w.Update(v)
	}
	return Summary{
		Samples:           w.N(),
		Mean:              w.Mean(),
		StandardDeviation: w.StandardDeviation(),
		CV:                w.CV(),
		EWMA:              w.EWMA(),
		Stable:            stable,
	}
}
