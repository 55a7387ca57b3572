package internal

import "math"

// PautaFilter drops samples farther than three standard deviations from
// the mean (Pauta criterion). Fewer than three samples are returned as is.
func PautaFilter(vector []float64) []float64 {
	if len(vector) < 3 {
		return vector
	}
	mean, _, std := SampleVariance(vector)
	DBG().Logger().Sugar().Debugf("pauta filter: n=%d mean=%.2f std=%.2f", len(vector), mean, std)
	if std == 0 {
		return vector
	}
	retVec := make([]float64, 0, len(vector))
	for _, value := range vector {
		if math.Abs(value-mean) < 3*std {
			retVec = append(retVec, value)
		}
	}
	return retVec
}

// SampleVariance returns mean, Bessel-corrected variance and standard
// deviation of vector.
func SampleVariance(vector []float64) (mean, variance, stdDev float64) {
	if len(vector) == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, value := range vector {
		sum += value
	}
	mean = sum / float64(len(vector))
	if len(vector) < 2 {
		return mean, 0, 0
	}
	var accumulate float64
	for _, value := range vector {
		accumulate += (value - mean) * (value - mean)
	}
	variance = accumulate / float64(len(vector)-1)
	stdDev = math.Sqrt(variance)
	return
}
