package stresstest

import (
	"sort"
)

// Stats holds runtime statistics for a load test or one of its steps
type Stats struct {
	CompletedRequests int
	ErrorCount        int // Network errors (timeouts, connection failures)
	FailureCount      int // Responses with status >= 400
	SuccessCount      int
	Durations         []int64 // For percentile calculation
	TotalDurationMs   int64
	MinDurationMs     int64
	MaxDurationMs     int64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{
		Durations:     make([]int64, 0, 1000),
		MinDurationMs: -1,
		MaxDurationMs: -1,
	}
}

// AddResult adds a request result to the statistics
// isNetworkError: true for connection failures, timeouts, etc.
// isFailure: true for a response with an error status
func (s *Stats) AddResult(durationMs int64, isNetworkError bool, isFailure bool) {
	s.CompletedRequests++
	s.TotalDurationMs += durationMs
	s.Durations = append(s.Durations, durationMs)

	if isNetworkError {
		s.ErrorCount++
	} else if isFailure {
		s.FailureCount++
	} else {
		s.SuccessCount++
	}

	if s.MinDurationMs == -1 || durationMs < s.MinDurationMs {
		s.MinDurationMs = durationMs
	}
	if s.MaxDurationMs == -1 || durationMs > s.MaxDurationMs {
		s.MaxDurationMs = durationMs
	}
}

// Clone returns a deep copy
func (s *Stats) Clone() *Stats {
	c := *s
	c.Durations = make([]int64, len(s.Durations))
	copy(c.Durations, s.Durations)
	return &c
}

// AvgDurationMs returns the average duration in milliseconds
func (s *Stats) AvgDurationMs() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.TotalDurationMs) / float64(s.CompletedRequests)
}

// Min returns the minimum duration, or 0 if no results
func (s *Stats) Min() int64 {
	if s.MinDurationMs == -1 {
		return 0
	}
	return s.MinDurationMs
}

// Max returns the maximum duration, or 0 if no results
func (s *Stats) Max() int64 {
	if s.MaxDurationMs == -1 {
		return 0
	}
	return s.MaxDurationMs
}

// Percentile calculates the percentile value (p should be between 0 and 100)
func (s *Stats) Percentile(p float64) int64 {
	if len(s.Durations) == 0 {
		return 0
	}

	sorted := make([]int64, len(s.Durations))
	copy(sorted, s.Durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between lower and upper
	weight := index - float64(lower)
	return int64(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}

// P50 returns the 50th percentile (median)
func (s *Stats) P50() int64 {
	return s.Percentile(50)
}

// P90 returns the 90th percentile
func (s *Stats) P90() int64 {
	return s.Percentile(90)
}

// P95 returns the 95th percentile
func (s *Stats) P95() int64 {
	return s.Percentile(95)
}

// P99 returns the 99th percentile
func (s *Stats) P99() int64 {
	return s.Percentile(99)
}

// SuccessRate returns the success rate as a percentage
func (s *Stats) SuccessRate() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.CompletedRequests) * 100
}

// ErrorRate returns the network error rate as a percentage
func (s *Stats) ErrorRate() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.CompletedRequests) * 100
}

// FailureRate returns the error-status rate as a percentage
func (s *Stats) FailureRate() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(s.CompletedRequests) * 100
}

// Summary turns the statistics into a StepSummary
func (s *Stats) Summary(step string) StepSummary {
	return StepSummary{
		Step:          step,
		Requests:      s.CompletedRequests,
		Errors:        s.ErrorCount,
		Failures:      s.FailureCount,
		AvgDurationMs: s.AvgDurationMs(),
		MinDurationMs: s.Min(),
		MaxDurationMs: s.Max(),
		P95DurationMs: s.P95(),
	}
}
