// Package cadence measures how regularly frames reach the screen.
package cadence

import (
	"math"
)

const (
	// rateStabilityThreshold is the maximum allowed rate standard deviation as a fraction of mean rate.
	// Example: 60 Hz mean → stable if stddev < 9 Hz
	rateStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a fraction of the expected interval.
	// Example: 60 Hz (16.7ms interval) → stable if jitter < 3.3ms
	jitterStabilityThreshold = 0.20

	// DefaultWindow is the number of presentations kept by NewWindow(0).
	DefaultWindow = 120
)

// Stats summarizes a window of presentation timestamps.
type Stats struct {
	Presentations int
	SpanUs        int64

	RateMean   float64 // Hz
	RateStdDev float64
	RateMin    float64
	RateMax    float64

	JitterMeanUs   float64
	JitterStdDevUs float64
	JitterMaxUs    float64

	IsStable bool
}

// Window is a ring of the most recent presentation times.
// It is not safe for concurrent use.
type Window struct {
	timesUs []int64
	next    int
	full    bool
}

// NewWindow keeps the last size presentations (DefaultWindow when size <= 0).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Window{timesUs: make([]int64, size)}
}

// Add records one presentation. Unknown (0) and non-increasing times are dropped.
func (w *Window) Add(presentationUs int64) {
	if presentationUs == 0 {
		return
	}
	if n := w.Len(); n > 0 && presentationUs <= w.at(n-1) {
		return
	}

	w.timesUs[w.next] = presentationUs
	w.next++
	if w.next == len(w.timesUs) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of recorded presentations.
func (w *Window) Len() int {
	if w.full {
		return len(w.timesUs)
	}
	return w.next
}

// Reset forgets every presentation.
func (w *Window) Reset() {
	w.next = 0
	w.full = false
}

// at returns the i-th oldest recorded presentation.
func (w *Window) at(i int) int64 {
	if !w.full {
		return w.timesUs[i]
	}
	return w.timesUs[(w.next+i)%len(w.timesUs)]
}

// Times returns the recorded presentations, oldest first.
func (w *Window) Times() []int64 {
	n := w.Len()
	out := make([]int64, n)
	for i := range out {
		out[i] = w.at(i)
	}
	return out
}

// Stats computes the cadence of the window.
//
// This function:
//  1. Calculates mean presentation rate over the window span
//  2. Calculates instantaneous rate for each interval, with min/max and stddev
//  3. Calculates jitter against expectedIntervalUs (the observed mean interval when 0)
//  4. Determines stability (rate stddev < 15% of mean AND jitter < 20% of interval)
func (w *Window) Stats(expectedIntervalUs int64) Stats {
	return Calculate(w.Times(), expectedIntervalUs)
}

// Calculate computes cadence statistics from increasing presentation times.
func Calculate(timesUs []int64, expectedIntervalUs int64) Stats {
	n := len(timesUs)
	stats := Stats{Presentations: n}
	if n < 2 {
		return stats
	}

	stats.SpanUs = timesUs[n-1] - timesUs[0]
	if stats.SpanUs <= 0 {
		return stats
	}

	// Mean rate over the whole span
	stats.RateMean = float64(n-1) * 1e6 / float64(stats.SpanUs)

	rates := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if intervalUs := timesUs[i] - timesUs[i-1]; intervalUs > 0 {
			rates = append(rates, 1e6/float64(intervalUs))
		}
	}

	stats.RateMin, stats.RateMax = rates[0], rates[0]
	var sumSquares float64
	for _, r := range rates {
		stats.RateMin = math.Min(stats.RateMin, r)
		stats.RateMax = math.Max(stats.RateMax, r)
		diff := r - stats.RateMean
		sumSquares += diff * diff
	}
	stats.RateStdDev = math.Sqrt(sumSquares / float64(len(rates)))

	expectedUs := float64(expectedIntervalUs)
	if expectedUs <= 0 {
		expectedUs = 1e6 / stats.RateMean
	}

	jitters := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		jitters = append(jitters, math.Abs(float64(timesUs[i]-timesUs[i-1])-expectedUs))
	}

	var jitterSum float64
	for _, j := range jitters {
		jitterSum += j
		stats.JitterMaxUs = math.Max(stats.JitterMaxUs, j)
	}
	stats.JitterMeanUs = jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMeanUs
		jitterSumSquares += diff * diff
	}
	stats.JitterStdDevUs = math.Sqrt(jitterSumSquares / float64(len(jitters)))

	rateStable := stats.RateStdDev < stats.RateMean*rateStabilityThreshold
	jitterStable := stats.JitterMeanUs < expectedUs*jitterStabilityThreshold
	stats.IsStable = rateStable && jitterStable

	return stats
}
