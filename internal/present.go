package internal

import (
	"math"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
)

// missedFramesReportIntervalUs rate-limits the missed frames log.
const missedFramesReportIntervalUs = 1_000_000

// NotifyPresented reports that the oldest frame in flight reached the screen.
//
// Algorithm:
//  1. Rotate roles: previous ← next presentation ← next-next presentation
//  2. Stamp target/actual presentation times and flags on the frame
//  3. Account missed frames (rate-limited log)
//  4. Feed the estimator, adopt the reported refresh rate
//  5. Drop one frame in flight and maybe reschedule
func (c *Clock) NotifyPresented(sample Sample) {
	if c.destroyed {
		return
	}

	next := afterCompletion[c.state]
	if next == stateNone || !c.nextPresentation.Valid() {
		c.warn(WarnPresent, "presentation reported with no frame in flight",
			"presentation_time_us", sample.PresentationTimeUs)
		return
	}

	c.pool.Assign(&c.prevPresentation, c.nextPresentation)
	c.pool.Assign(&c.nextPresentation, c.nextNextPresentation)
	c.pool.Clear(&c.nextNextPresentation)

	frame := c.pool.Get(c.prevPresentation)
	if sample.TargetPresentationTimeUs != 0 {
		frame.TargetPresentationTimeUs = sample.TargetPresentationTimeUs
	}
	frame.PresentationTimeUs = sample.PresentationTimeUs
	frame.PresentationFlags = sample.Flags

	missed := c.accountMissedFrames(frame.TargetPresentationTimeUs, frame.PresentationTimeUs)

	frame.GotMeasurements = c.estimator.Observe(estimator.Sample{
		PresentationTimeUs:        frame.PresentationTimeUs,
		DispatchTimeUs:            frame.DispatchTimeUs,
		DispatchLatenessUs:        frame.DispatchLatenessUs,
		FlipTimeUs:                frame.FlipTimeUs,
		CPUTimeBeforeBufferSwapUs: sample.CPUTimeBeforeBufferSwapUs,
		GPURenderingDurationUs:    sample.GPURenderingDurationUs(),
		HasMeasurements:           sample.HasMeasurements(),
	}, c.refreshIntervalUs)

	if sample.RefreshRate > 1 && sample.RefreshRate != c.refreshRate {
		c.applyRefreshRate(sample.RefreshRate)
		c.logger.Info("frame-clock: refresh rate changed",
			"refresh_rate", c.refreshRate,
			"refresh_interval_us", c.refreshIntervalUs,
		)
	}

	c.cadence.Add(frame.PresentationTimeUs)
	c.record(sample, missed)

	c.state = next
	c.maybeReschedule()
}

// NotifyReady reports that the youngest frame in flight completed without
// presentation feedback.
func (c *Clock) NotifyReady() {
	if c.destroyed {
		return
	}

	next := afterCompletion[c.state]
	if next == stateNone {
		c.warn(WarnPresent, "ready reported with no frame in flight")
		return
	}

	c.pool.Clear(c.youngestInFlight())
	c.state = next
	c.maybeReschedule()
}

// RecordFlipTime stamps the time the oldest frame in flight was handed to
// the display hardware.
func (c *Clock) RecordFlipTime(flipTimeUs int64) {
	frame := c.pool.Get(c.nextPresentation)
	if frame == nil {
		c.warn(WarnPresent, "flip reported with no frame in flight", "flip_time_us", flipTimeUs)
		return
	}
	frame.FlipTimeUs = flipTimeUs
}

func (c *Clock) accountMissedFrames(targetUs, presentationUs int64) int64 {
	if targetUs == 0 || presentationUs == 0 || targetUs == presentationUs {
		return 0
	}

	diffUs := math.Abs(float64(presentationUs - targetUs))
	missed := int64(math.Round(diffUs / float64(c.refreshIntervalUs)))
	if missed == 0 {
		return 0
	}

	c.missedFrames += missed
	c.missedFramesSinceReport += missed

	if presentationUs-c.lastMissedFramesReportUs >= missedFramesReportIntervalUs {
		c.logger.Info("frame-clock: missed frames",
			"missed", c.missedFramesSinceReport,
			"total", c.missedFrames,
			"refresh_interval_us", c.refreshIntervalUs,
		)
		c.missedFramesSinceReport = 0
		c.lastMissedFramesReportUs = presentationUs
	}
	return missed
}

// record builds the report of the frame just presented.
func (c *Clock) record(sample Sample, missed int64) {
	frame := c.pool.Get(c.prevPresentation)
	est := c.estimator.State()

	report := FrameReport{
		FrameCount:                frame.FrameCount,
		DispatchTimeUs:            frame.DispatchTimeUs,
		DispatchLatenessUs:        frame.DispatchLatenessUs,
		FlipTimeUs:                frame.FlipTimeUs,
		TargetPresentationTimeUs:  frame.TargetPresentationTimeUs,
		PresentationTimeUs:        frame.PresentationTimeUs,
		PresentationFlags:         frame.PresentationFlags,
		CPUTimeBeforeBufferSwapUs: sample.CPUTimeBeforeBufferSwapUs,
		GPURenderingDurationUs:    sample.GPURenderingDurationUs(),
		GotMeasurements:           frame.GotMeasurements,
		RefreshIntervalUs:         c.refreshIntervalUs,
		MissedFrames:              missed,
		ShorttermMaxUs:            est.ShorttermMaxUs,
		LongtermMaxUs:             est.LongtermMaxUs,
	}
	report.MaxRenderTimeUs, report.HasMaxRenderTime = c.estimator.MaxRenderTimeUs(c.refreshIntervalUs)

	c.history.Add(report)
	c.reports.Publish(report)
	if c.observer != nil {
		c.observer.FramePresented(report)
	}
}
