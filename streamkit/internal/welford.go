package internal

import (
	"fmt"
	"math"
)

// stableCV is the coefficient of variation under which a window of
// speed samples is considered settled.
const stableCV = 0.03

// Welford keeps mean and variance of the last windowSize speed samples.
// ref Welford, B. P. (1962). Note on a Method for Calculating Corrected Sums of Squares and Products. Technometrics, 4(3), 419–420. https://doi.org/10.1080/00401706.1962.10490022
type Welford struct {
	n          int       // samples inside the window
	mean       float64   // window mean
	m2         float64   // sum of squared deviations
	window     []float64 // ring of samples
	eraseIndex int       // slot overwritten next once the ring is full
	stdDev     float64
	cv         float64
	ewma       float64

	stableRuns      int
	stableThreshold int
}

// NewWelford windowSize = moving window length / sampling period.
func NewWelford(windowSize int) *Welford {
	if windowSize < 2 {
		windowSize = 2
	}
	return &Welford{
		window:          make([]float64, windowSize),
		stableThreshold: 10,
	}
}

// Update feeds one sample and reports whether the window has been stable
// for enough consecutive updates.
func (w *Welford) Update(value float64) bool {
	if w.n == len(w.window) {
		old := w.window[w.eraseIndex]
		delta := old - w.mean
		w.mean -= delta / float64(w.n-1)
		w.m2 -= delta * (old - w.mean)
		if w.m2 < 0 {
			w.m2 = 0
		}
		w.n--
		w.window[w.eraseIndex] = value
		w.eraseIndex = (w.eraseIndex + 1) % len(w.window)
	} else {
		w.window[w.n] = value
	}
	w.n++
	delta := value - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (value - w.mean)
	w.stdDev = math.Sqrt(w.Variance())

	switch {
	case w.mean == 0:
		w.cv = 1
	default:
		w.cv = math.Min(w.stdDev/math.Abs(w.mean), 1)
	}
	// noisy windows lean on the running mean, quiet ones keep history
	beta := w.cv*0.381 + 0.618
	if w.n == 1 {
		w.ewma = value
	} else {
		w.ewma = w.mean*beta + w.ewma*(1-beta)
	}

	if len(w.window)/2 < w.n && w.cv < stableCV {
		w.stableRuns++
	} else {
		w.stableRuns = 0
	}
	return w.stableRuns >= w.stableThreshold
}

func (w *Welford) N() int {
	return w.n
}

func (w *Welford) Mean() float64 {
	return w.mean
}

func (w *Welford) CV() float64 {
	return w.cv
}

func (w *Welford) Variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

func (w *Welford) StandardDeviation() float64 {
	return w.stdDev
}

func (w *Welford) EWMA() float64 {
	return w.ewma
}

func (w *Welford) String() string {
	return fmt.Sprintf("Mean: %.2f, Standard Deviation: %.2f, C.V: %.2f, EWMA: %.2f", w.Mean(), w.StandardDeviation(), w.CV(), w.EWMA())
}
