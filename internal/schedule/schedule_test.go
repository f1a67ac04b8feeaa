package schedule

import (
	"testing"
	"testing/quick"
)

const (
	interval   = 16667
	fallbackUs = 14583 // 0.875 of interval, truncated
)

func TestRefreshIntervalUs(t *testing.T) {
	tests := []struct {
		rate float64
		want int64
	}{
		{60, 16667},
		{30, 33333},
		{144, 6944},
		{59.94, 16683},
	}
	for _, tt := range tests {
		if got := RefreshIntervalUs(tt.rate); got != tt.want {
			t.Errorf("RefreshIntervalUs(%v) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "nothing dispatched yet",
			in:   Input{NowUs: 500_000, RefreshIntervalUs: interval},
			want: Result{UpdateTimeUs: 500_000},
		},
		{
			name: "dispatched but never presented",
			in: Input{
				NowUs: 105_000, RefreshIntervalUs: interval,
				LastDispatchUs: 100_000, LastDispatchLatenessUs: 500,
			},
			want: Result{UpdateTimeUs: 116_167},
		},
		{
			name: "steady state without estimate",
			in: Input{
				NowUs: 1_001_000, RefreshIntervalUs: interval, VblankDurationUs: 1000,
				LastPresentationUs: 1_000_000, FramesAhead: 1,
			},
			want: Result{
				UpdateTimeUs:       1_016_667 - fallbackUs,
				PresentationTimeUs: 1_016_667,
				FrameDeadlineUs:    1_015_667,
			},
		},
		{
			name: "steady state with estimate",
			in: Input{
				NowUs: 1_001_000, RefreshIntervalUs: interval, VblankDurationUs: 1000,
				MaxRenderTimeUs: 4000, HasMaxRenderTime: true,
				LastPresentationUs: 1_000_000, FramesAhead: 1,
			},
			want: Result{
				UpdateTimeUs:       1_012_667,
				PresentationTimeUs: 1_016_667,
				FrameDeadlineUs:    1_015_667,
			},
		},
		{
			name: "one frame already in flight",
			in: Input{
				NowUs: 1_001_000, RefreshIntervalUs: interval,
				LastPresentationUs: 1_000_000, FramesAhead: 2,
			},
			want: Result{
				UpdateTimeUs:       1_033_334 - fallbackUs,
				PresentationTimeUs: 1_033_334,
				FrameDeadlineUs:    1_033_334,
			},
		},
		{
			name: "too late for the smooth slot",
			in: Input{
				NowUs: 1_012_000, RefreshIntervalUs: interval,
				LastPresentationUs: 1_000_000, FramesAhead: 1,
			},
			want: Result{
				UpdateTimeUs:       1_033_334 - fallbackUs,
				PresentationTimeUs: 1_033_334,
				FrameDeadlineUs:    1_033_334,
			},
		},
		{
			name: "resume after idle aligns to the vblank grid",
			in: Input{
				NowUs: 1_050_000, RefreshIntervalUs: interval,
				LastPresentationUs: 1_000_000, FramesAhead: 1,
			},
			want: Result{
				UpdateTimeUs:       1_066_668 - fallbackUs,
				PresentationTimeUs: 1_066_668,
				FrameDeadlineUs:    1_066_668,
			},
		},
		{
			name: "resume after idle on vsync starts now",
			in: Input{
				NowUs: 1_045_000, RefreshIntervalUs: interval,
				MaxRenderTimeUs: 3000, HasMaxRenderTime: true,
				LastPresentationUs: 1_000_000, LastPresentationVsync: true, FramesAhead: 1,
			},
			want: Result{
				UpdateTimeUs:       1_045_000,
				PresentationTimeUs: 1_050_001,
				FrameDeadlineUs:    1_050_001,
			},
		},
		{
			name: "early presentation skips an interval",
			in: Input{
				NowUs: 1_001_000, RefreshIntervalUs: interval,
				LastPresentationUs: 1_000_000, FramesAhead: 1,
				PreviousTargetUs: 1_010_000,
			},
			want: Result{
				UpdateTimeUs:       1_026_667 - fallbackUs,
				PresentationTimeUs: 1_026_667,
				FrameDeadlineUs:    1_026_667,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fixed(tt.in); got != tt.want {
				t.Errorf("Fixed() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Property: the update time is never in the past and never after the
// predicted presentation.
func TestFixedUpdateWithinBounds(t *testing.T) {
	property := func(lastOffset uint16, nowOffset uint32, estimate uint16, ahead uint8) bool {
		in := Input{
			RefreshIntervalUs:  interval,
			LastPresentationUs: 10_000_000 + int64(lastOffset),
			FramesAhead:        int(ahead%3) + 1,
		}
		in.NowUs = in.LastPresentationUs + int64(nowOffset%200_000)
		if estimate%2 == 0 {
			in.MaxRenderTimeUs = int64(estimate) % (2 * interval)
			in.HasMaxRenderTime = true
		}

		r := Fixed(in)
		return r.UpdateTimeUs >= in.NowUs &&
			r.UpdateTimeUs <= r.PresentationTimeUs &&
			r.PresentationTimeUs > in.LastPresentationUs
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestVariable(t *testing.T) {
	t.Run("next interval", func(t *testing.T) {
		in := Input{
			NowUs: 1_001_000, RefreshIntervalUs: interval, VblankDurationUs: 1000,
			LastPresentationUs: 1_000_000,
		}
		want := Result{
			UpdateTimeUs:       1_016_667 - fallbackUs,
			PresentationTimeUs: 1_016_667,
			FrameDeadlineUs:    1_015_667,
		}
		if got := Variable(in); got != want {
			t.Errorf("Variable() = %+v, want %+v", got, want)
		}
	})

	t.Run("presentation already passed", func(t *testing.T) {
		in := Input{
			NowUs: 1_020_000, RefreshIntervalUs: interval,
			LastPresentationUs: 1_000_000,
		}
		got := Variable(in)
		if got.HasPresentationTime() {
			t.Errorf("PresentationTimeUs = %d, want unknown", got.PresentationTimeUs)
		}
		if got.UpdateTimeUs != 1_020_000 || got.FrameDeadlineUs != 1_020_000+interval {
			t.Errorf("Variable() = %+v", got)
		}
	})

	t.Run("never presented", func(t *testing.T) {
		in := Input{NowUs: 7000, RefreshIntervalUs: interval}
		if got := Variable(in); got != (Result{UpdateTimeUs: 7000}) {
			t.Errorf("Variable() = %+v", got)
		}
	})
}

func TestTimeoutIntervalUs(t *testing.T) {
	const maxInterval = 33333

	tests := []struct {
		name   string
		syncUs int64
		want   int64
	}{
		{"recent frame sync", 990_000, interval},
		{"never synced", 0, maxInterval},
		{"sync long ago", 900_000, maxInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeoutIntervalUs(1_000_000, tt.syncUs, interval, maxInterval); got != tt.want {
				t.Errorf("TimeoutIntervalUs() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVariableTimeout(t *testing.T) {
	const timeout = 33333

	t.Run("advances past now", func(t *testing.T) {
		in := Input{NowUs: 1_100_000, LastPresentationUs: 1_000_000}
		if got := VariableTimeout(in, timeout); got != 1_133_332 {
			t.Errorf("VariableTimeout() = %d, want 1133332", got)
		}
	})

	t.Run("one timeout after last presentation", func(t *testing.T) {
		in := Input{NowUs: 1_010_000, LastPresentationUs: 1_000_000}
		if got := VariableTimeout(in, timeout); got != 1_033_333 {
			t.Errorf("VariableTimeout() = %d, want 1033333", got)
		}
	})

	t.Run("falls back to dispatch", func(t *testing.T) {
		in := Input{NowUs: 510_000, LastDispatchUs: 500_000}
		if got := VariableTimeout(in, timeout); got != 533_333 {
			t.Errorf("VariableTimeout() = %d, want 533333", got)
		}
	})

	t.Run("nothing known", func(t *testing.T) {
		in := Input{NowUs: 42}
		if got := VariableTimeout(in, timeout); got != 42 {
			t.Errorf("VariableTimeout() = %d, want 42", got)
		}
	})
}

func TestFixedLater(t *testing.T) {
	in := Input{NowUs: 1_001_000, RefreshIntervalUs: interval, VblankDurationUs: 1000}
	natural := Result{UpdateTimeUs: 1_002_084, PresentationTimeUs: 1_016_667, FrameDeadlineUs: 1_015_667}

	t.Run("extrapolates whole cycles", func(t *testing.T) {
		got, ok := FixedLater(in, natural, 1_100_000)
		want := Result{UpdateTimeUs: 1_085_419, PresentationTimeUs: 1_100_002, FrameDeadlineUs: 1_099_002}
		if !ok || got != want {
			t.Errorf("FixedLater() = %+v, %v, want %+v, true", got, ok, want)
		}
	})

	t.Run("natural already late enough", func(t *testing.T) {
		if _, ok := FixedLater(in, natural, 1_016_667); ok {
			t.Error("FixedLater() ok = true for a target the natural schedule satisfies")
		}
	})

	t.Run("unknown presentation uses target directly", func(t *testing.T) {
		got, ok := FixedLater(in, Result{UpdateTimeUs: 1_001_000}, 1_100_000)
		want := Result{UpdateTimeUs: 1_100_000 - fallbackUs, PresentationTimeUs: 1_100_000, FrameDeadlineUs: 1_099_000}
		if !ok || got != want {
			t.Errorf("FixedLater() = %+v, %v, want %+v, true", got, ok, want)
		}
	})
}

func TestVariableLater(t *testing.T) {
	in := Input{
		NowUs: 1_000_000, RefreshIntervalUs: interval, VblankDurationUs: 500,
		MaxRenderTimeUs: 4000, HasMaxRenderTime: true,
	}

	got, ok := VariableLater(in, Result{UpdateTimeUs: 1_000_000}, 1_100_000)
	want := Result{UpdateTimeUs: 1_096_000, PresentationTimeUs: 1_100_000, FrameDeadlineUs: 1_099_500}
	if !ok || got != want {
		t.Errorf("VariableLater() = %+v, %v, want %+v, true", got, ok, want)
	}

	got, ok = VariableLater(in, Result{UpdateTimeUs: 1_000_000}, 1_002_000)
	if !ok || got.UpdateTimeUs != 1_000_000 {
		t.Errorf("VariableLater() near target = %+v, %v, want update now", got, ok)
	}
}

func TestWantTripleBuffering(t *testing.T) {
	tests := []struct {
		name     string
		passive  bool
		disabled bool
		estimate int64
		has      bool
		want     bool
	}{
		{"no estimate", false, false, 0, false, true},
		{"slow frames", false, false, 20_000, true, true},
		{"fast frames", false, false, 10_000, true, false},
		{"administratively disabled", false, true, 20_000, true, false},
		{"passive", true, false, 20_000, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{RefreshIntervalUs: interval, MaxRenderTimeUs: tt.estimate, HasMaxRenderTime: tt.has}
			if got := WantTripleBuffering(tt.passive, tt.disabled, in); got != tt.want {
				t.Errorf("WantTripleBuffering() = %v, want %v", got, tt.want)
			}
		})
	}
}
