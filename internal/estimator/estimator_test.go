package estimator

import (
	"strings"
	"testing"
	"testing/quick"
)

const interval60Hz = 16667

// sampleAt builds a measured sample whose implied update duration is
// cpuUs + max(gpuUs, flipUs).
func sampleAt(presentationUs, cpuUs, gpuUs, flipUs int64) Sample {
	dispatchUs := presentationUs - 20000
	return Sample{
		PresentationTimeUs:        presentationUs,
		DispatchTimeUs:            dispatchUs,
		CPUTimeBeforeBufferSwapUs: dispatchUs + cpuUs,
		GPURenderingDurationUs:    gpuUs,
		FlipTimeUs:                dispatchUs + cpuUs + flipUs,
		HasMeasurements:           true,
	}
}

func TestObserveComputesShorttermMax(t *testing.T) {
	e := New(Config{})

	// cpu 5000 after dispatch, gpu 3000, swap to flip 2000
	if !e.Observe(sampleAt(100_000, 5000, 3000, 2000), interval60Hz) {
		t.Fatal("Observe() = false, want true for a measured sample")
	}

	if got := e.State().ShorttermMaxUs; got != 8000 {
		t.Errorf("ShorttermMaxUs = %d, want 8000", got)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   Durations
	}{
		{
			name: "swap boundary",
			sample: Sample{
				DispatchTimeUs:            1000,
				CPUTimeBeforeBufferSwapUs: 4000,
				GPURenderingDurationUs:    2500,
				FlipTimeUs:                5000,
			},
			want: Durations{DispatchToSwapUs: 3000, SwapToRenderingDoneUs: 2500, SwapToFlipUs: 1000},
		},
		{
			name: "cursor only update",
			sample: Sample{
				DispatchTimeUs: 1000,
				FlipTimeUs:     1800,
			},
			want: Durations{SwapToFlipUs: 800},
		},
		{
			name: "flip unknown",
			sample: Sample{
				DispatchTimeUs:            1000,
				CPUTimeBeforeBufferSwapUs: 1500,
				GPURenderingDurationUs:    900,
			},
			want: Durations{DispatchToSwapUs: 500, SwapToRenderingDoneUs: 900},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.Split(); got != tt.want {
				t.Errorf("Split() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestShorttermIsRatchet(t *testing.T) {
	e := New(Config{})

	e.Observe(sampleAt(100_000, 6000, 4000, 0), interval60Hz)
	first := e.State().ShorttermMaxUs

	e.Observe(sampleAt(116_667, 1000, 500, 0), interval60Hz)
	if got := e.State().ShorttermMaxUs; got != first {
		t.Errorf("ShorttermMaxUs dropped within window: %d -> %d", first, got)
	}
}

func TestShorttermRatchetProperty(t *testing.T) {
	property := func(a, b uint16) bool {
		e := New(Config{})
		// same promotion window: the first sample promotes at t=1s, both
		// later samples stay inside the following second
		e.Observe(sampleAt(1_000_000, 0, 0, 0), interval60Hz)
		e.Observe(sampleAt(1_100_000, int64(a), 0, 0), interval60Hz)
		before := e.State().ShorttermMaxUs
		e.Observe(sampleAt(1_200_000, int64(b), 0, 0), interval60Hz)
		return e.State().ShorttermMaxUs >= before
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestShorttermClampedToTwoIntervals(t *testing.T) {
	e := New(Config{})
	e.Observe(sampleAt(100_000, 90_000, 0, 0), interval60Hz)

	if got := e.State().ShorttermMaxUs; got != 2*interval60Hz {
		t.Errorf("ShorttermMaxUs = %d, want %d", got, 2*interval60Hz)
	}
}

func TestLongtermPromotion(t *testing.T) {
	e := New(Config{})

	// first measurement is more than a second after promotion time 0
	e.Observe(sampleAt(1_000_000, 10_000, 0, 0), interval60Hz)
	st := e.State()
	if st.LongtermMaxUs != 10_000 || st.ShorttermMaxUs != 0 {
		t.Fatalf("after first promotion: %+v", st)
	}
	if st.LongtermPromotionUs != 1_000_000 {
		t.Errorf("LongtermPromotionUs = %d, want 1000000", st.LongtermPromotionUs)
	}

	t.Run("no promotion inside window", func(t *testing.T) {
		e.Observe(sampleAt(1_500_000, 2000, 0, 0), interval60Hz)
		st := e.State()
		if st.LongtermMaxUs != 10_000 || st.ShorttermMaxUs != 2000 {
			t.Errorf("state = %+v", st)
		}
		if got := e.MaxUpdateDurationUs(); got != 10_000 {
			t.Errorf("MaxUpdateDurationUs() = %d, want 10000", got)
		}
	})

	t.Run("decay halves the gap", func(t *testing.T) {
		e.Observe(sampleAt(2_000_000, 2000, 0, 0), interval60Hz)
		st := e.State()
		if st.LongtermMaxUs != 6000 {
			t.Errorf("LongtermMaxUs = %d, want 6000", st.LongtermMaxUs)
		}
		if st.ShorttermMaxUs != 0 {
			t.Errorf("ShorttermMaxUs = %d, want 0", st.ShorttermMaxUs)
		}
	})

	t.Run("growth adopts shortterm", func(t *testing.T) {
		e.Observe(sampleAt(3_000_000, 9000, 0, 0), interval60Hz)
		if got := e.State().LongtermMaxUs; got != 9000 {
			t.Errorf("LongtermMaxUs = %d, want 9000", got)
		}
	})
}

func TestUnmeasuredSamplesStillPromote(t *testing.T) {
	e := New(Config{})
	e.Observe(sampleAt(1_000_000, 8000, 0, 0), interval60Hz)

	got := e.Observe(Sample{PresentationTimeUs: 2_000_000}, interval60Hz)
	if got {
		t.Error("Observe() = true for an unmeasured sample")
	}
	if lt := e.State().LongtermMaxUs; lt != 4000 {
		t.Errorf("LongtermMaxUs = %d, want 4000", lt)
	}
}

func TestMaxRenderTime(t *testing.T) {
	t.Run("unavailable before any measurement", func(t *testing.T) {
		e := New(Config{VblankDurationUs: 1000, RenderTimeConstantUs: DefaultRenderTimeConstantUs})
		e.Observe(Sample{PresentationTimeUs: 2_000_000}, interval60Hz)
		if _, ok := e.MaxRenderTimeUs(interval60Hz); ok {
			t.Error("MaxRenderTimeUs() ok = true before any measurement")
		}
	})

	t.Run("sums the terms", func(t *testing.T) {
		e := New(Config{VblankDurationUs: 1000, RenderTimeConstantUs: DefaultRenderTimeConstantUs})
		e.Observe(sampleAt(100_000, 5000, 3000, 2000), interval60Hz)
		got, ok := e.MaxRenderTimeUs(interval60Hz)
		if !ok || got != 10_000 {
			t.Errorf("MaxRenderTimeUs() = %d, %v, want 10000, true", got, ok)
		}
	})

	t.Run("dynamic disabled", func(t *testing.T) {
		e := New(Config{DisableDynamic: true})
		e.Observe(sampleAt(100_000, 5000, 3000, 2000), interval60Hz)
		if _, ok := e.MaxRenderTimeUs(interval60Hz); ok {
			t.Error("MaxRenderTimeUs() ok = true with dynamic max render time disabled")
		}
	})

	caps := []struct {
		name    string
		disable bool
		want    int64
	}{
		{"triple buffering caps at two intervals", false, 2 * interval60Hz},
		{"double buffering caps at one interval", true, interval60Hz},
	}
	for _, tt := range caps {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{
				VblankDurationUs:       5000,
				RenderTimeConstantUs:   DefaultRenderTimeConstantUs,
				DisableTripleBuffering: tt.disable,
			})
			e.Observe(sampleAt(100_000, 30_000, 0, 0), interval60Hz)
			got, ok := e.MaxRenderTimeUs(interval60Hz)
			if !ok || got != tt.want {
				t.Errorf("MaxRenderTimeUs() = %d, %v, want %d, true", got, ok, tt.want)
			}
		})
	}
}

func TestMaxRenderTimeBoundsProperty(t *testing.T) {
	property := func(cpu, gpu uint32, tripleOff bool) bool {
		e := New(Config{
			VblankDurationUs:       1000,
			RenderTimeConstantUs:   DefaultRenderTimeConstantUs,
			DisableTripleBuffering: tripleOff,
		})
		e.Observe(sampleAt(100_000, int64(cpu%100_000), int64(gpu%100_000), 0), interval60Hz)

		got, ok := e.MaxRenderTimeUs(interval60Hz)
		limit := int64(2 * interval60Hz)
		if tripleOff {
			limit = interval60Hz
		}
		return ok && got >= 0 && got <= limit
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestDebugInfo(t *testing.T) {
	e := New(Config{VblankDurationUs: 1000, RenderTimeConstantUs: DefaultRenderTimeConstantUs})
	e.Observe(sampleAt(100_000, 5000, 3000, 2000), interval60Hz)

	info := e.DebugInfo(interval60Hz)
	for _, want := range []string{
		"Max render time: 10000 µs =",
		"Vblank duration: 1000 µs +",
		"Update duration: 8000 µs +",
		"Constant: 1000 µs",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo() missing %q:\n%s", want, info)
		}
	}

	e.Observe(Sample{PresentationTimeUs: 110_000}, interval60Hz)
	if info := e.DebugInfo(interval60Hz); !strings.Contains(info, "(no measurements last frame)") {
		t.Errorf("DebugInfo() after unmeasured frame:\n%s", info)
	}
}
