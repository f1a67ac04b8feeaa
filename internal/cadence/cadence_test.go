package cadence

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"testing/quick"
)

// generatePresentations returns n presentation times at intervalUs with
// uniform jitter of ±jitterFraction of the interval.
func generatePresentations(n int, intervalUs int64, jitterFraction float64, seed int64) []int64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int64, n)
	t := int64(1_000_000)
	for i := range out {
		offset := (rng.Float64()*2 - 1) * jitterFraction * float64(intervalUs)
		out[i] = t + int64(offset)
		t += intervalUs
	}
	return out
}

// TestCadence_Property1_StabilityThresholds tests the stability criteria
//
// Property: rate stddev < 15% of mean AND jitter < 20% of expected interval → IsStable = true
func TestCadence_Property1_StabilityThresholds(t *testing.T) {
	t.Run("steady 60 Hz", func(t *testing.T) {
		stats := Calculate(generatePresentations(120, 16667, 0.02, 1), 16667)
		if !stats.IsStable {
			t.Errorf("Expected stable cadence, got %+v", stats)
		}
		if math.Abs(stats.RateMean-60) > 0.5 {
			t.Errorf("RateMean = %.2f, want ~60", stats.RateMean)
		}
	})

	t.Run("heavy jitter", func(t *testing.T) {
		stats := Calculate(generatePresentations(120, 16667, 0.45, 2), 16667)
		if stats.IsStable {
			t.Errorf("Expected unstable cadence (jitter %.0fµs)", stats.JitterMeanUs)
		}
	})

	t.Run("every other vblank missed", func(t *testing.T) {
		times := make([]int64, 0, 60)
		for i := int64(0); i < 60; i++ {
			times = append(times, i*2*16667+1)
		}
		stats := Calculate(times, 16667)
		if stats.IsStable {
			t.Error("Expected unstable cadence when presenting at half rate")
		}
		if math.Abs(stats.JitterMeanUs-16667) > 1 {
			t.Errorf("JitterMeanUs = %.1f, want ~16667", stats.JitterMeanUs)
		}
	})
}

// TestCadence_Property2_EdgeCases tests that degenerate windows return zero stats
func TestCadence_Property2_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		times []int64
	}{
		{"zero presentations", nil},
		{"one presentation", []int64{1000}},
		{"zero span", []int64{1000, 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Calculate(tt.times, 16667)
			if stats.IsStable || stats.RateMean != 0 {
				t.Errorf("Calculate() = %+v, want zero stats", stats)
			}
			if stats.Presentations != len(tt.times) {
				t.Errorf("Presentations = %d, want %d", stats.Presentations, len(tt.times))
			}
		})
	}
}

// TestCadence_Property3_BoundsInvariant tests min <= mean <= max for any increasing input
func TestCadence_Property3_BoundsInvariant(t *testing.T) {
	property := func(gaps []uint16) bool {
		times := []int64{1}
		for _, g := range gaps {
			times = append(times, times[len(times)-1]+int64(g)+1)
		}
		stats := Calculate(times, 0)
		if len(times) < 2 {
			return stats.RateMean == 0
		}
		const eps = 1e-9
		return stats.RateMin <= stats.RateMean+eps &&
			stats.RateMean <= stats.RateMax+eps &&
			stats.JitterMeanUs >= 0
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestWindowWrapsAround(t *testing.T) {
	w := NewWindow(4)
	for i := int64(1); i <= 6; i++ {
		w.Add(i * 1000)
	}

	if w.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", w.Len())
	}
	want := []int64{3000, 4000, 5000, 6000}
	if got := w.Times(); !slices.Equal(got, want) {
		t.Errorf("Times() = %v, want %v", got, want)
	}
}

func TestWindowDropsUnknownAndStale(t *testing.T) {
	w := NewWindow(0)
	w.Add(0)
	w.Add(5000)
	w.Add(4000)
	w.Add(5000)

	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}

	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d", w.Len())
	}
}
