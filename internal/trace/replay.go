package trace

import (
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/cadence"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
)

// Point is the estimator's view after one replayed frame.
type Point struct {
	FrameCount         int64
	PresentationTimeUs int64
	MaxRenderTimeUs    int64
	HasMaxRenderTime   bool
	ShorttermMaxUs     int64
	LongtermMaxUs      int64

	// Recorded is the value the live clock reported for this frame.
	// It differs from MaxRenderTimeUs when cfg differs from the live settings.
	Recorded int64
}

// Result is the outcome of a replay.
type Result struct {
	Points  []Point
	Cadence cadence.Stats
	// Diverged counts frames whose replayed max render time differs from the recording.
	Diverged int
}

// Replay feeds reports through a fresh estimator configured by cfg.
//
// Algorithm:
//  1. Each report becomes an estimator sample using its recorded refresh interval.
//  2. After each sample the max render time is read back and compared with
//     the value the live clock recorded.
//  3. Presentation times feed a cadence window sized to the whole trace.
func Replay(reports []history.Report, cfg estimator.Config) Result {
	est := estimator.New(cfg)
	win := cadence.NewWindow(len(reports))

	res := Result{Points: make([]Point, 0, len(reports))}
	var intervalUs int64

	for _, r := range reports {
		intervalUs = r.RefreshIntervalUs
		est.Observe(SampleOf(r), intervalUs)
		win.Add(r.PresentationTimeUs)

		state := est.State()
		p := Point{
			FrameCount:         r.FrameCount,
			PresentationTimeUs: r.PresentationTimeUs,
			ShorttermMaxUs:     state.ShorttermMaxUs,
			LongtermMaxUs:      state.LongtermMaxUs,
			Recorded:           r.MaxRenderTimeUs,
		}
		p.MaxRenderTimeUs, p.HasMaxRenderTime = est.MaxRenderTimeUs(intervalUs)
		if p.MaxRenderTimeUs != r.MaxRenderTimeUs || p.HasMaxRenderTime != r.HasMaxRenderTime {
			res.Diverged++
		}
		res.Points = append(res.Points, p)
	}

	res.Cadence = win.Stats(intervalUs)
	return res
}

// SampleOf rebuilds the estimator input from a recorded report.
func SampleOf(r history.Report) estimator.Sample {
	return estimator.Sample{
		PresentationTimeUs:        r.PresentationTimeUs,
		DispatchTimeUs:            r.DispatchTimeUs,
		DispatchLatenessUs:        r.DispatchLatenessUs,
		FlipTimeUs:                r.FlipTimeUs,
		CPUTimeBeforeBufferSwapUs: r.CPUTimeBeforeBufferSwapUs,
		GPURenderingDurationUs:    r.GPURenderingDurationUs,
		HasMeasurements:           r.GotMeasurements,
	}
}
