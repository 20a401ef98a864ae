package upload

import (
	"time"
)

// Stats tracks part upload durations for progress reporting.
type Stats struct {
	sum           time.Duration
	bytes         int64
	finishedParts int64
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// Update records a successful part upload of size bytes.
func (s *Stats) Update(d time.Duration, size int64) {
	s.sum += d
	s.bytes += size
	s.finishedParts++
}

// Average returns the average upload duration of finished parts.
func (s *Stats) Average() time.Duration {
	if s.finishedParts == 0 {
		return 0
	}
	return s.sum / time.Duration(s.finishedParts)
}

// BytesPerSecond returns the upload throughput over all finished parts.
func (s *Stats) BytesPerSecond() float64 {
	if s.sum <= 0 {
		return 0
	}
	return float64(s.bytes) / s.sum.Seconds()
}

// FinishedCount returns the number of uploaded parts.
func (s *Stats) FinishedCount() int64 {
	return s.finishedParts
}

// UploadedBytes returns the number of bytes in uploaded parts.
func (s *Stats) UploadedBytes() int64 {
	return s.bytes
}

// TotalDuration returns the sum of all part upload durations.
func (s *Stats) TotalDuration() time.Duration {
	return s.sum
}
