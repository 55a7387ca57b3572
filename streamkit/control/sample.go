package control

import (
	"fmt"
	"time"
)

// Sample is one progress measurement. Speeds are in bytes per second.
type Sample struct {
	Elapsed      time.Duration `json:"elapsed"`
	TotalBytes   int64         `json:"total_bytes"`
	AverageSpeed float64       `json:"average_speed"`
	CurrentSpeed float64       `json:"current_speed"`
	RawSpeed     float64       `json:"raw_speed"`
}

func (s Sample) String() string {
	return fmt.Sprintf("elapsed=%s total=%dB avg=%.2fB/s current=%.2fB/s", s.Elapsed, s.TotalBytes, s.AverageSpeed, s.CurrentSpeed)
}

// Subscriber receives samples synchronously on the caller's goroutine.
// It should return quickly.
type Subscriber func(Sample)
