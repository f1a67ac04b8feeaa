// Package estimator turns per-frame timing feedback into a conservative
// estimate of how long a frame update takes.
//
// Two maxima are tracked. The short-term maximum only grows while a
// promotion window is open; once per second of presentation time it is
// promoted into the long-term maximum, which decays toward it by halving
// the gap instead of dropping at once.
package estimator

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

const (
	// PromotionIntervalUs is the presentation-time window of the short-term maximum.
	PromotionIntervalUs = 1_000_000

	// DefaultRenderTimeConstantUs is added to every max render time estimate.
	DefaultRenderTimeConstantUs = 1000
)

// Config holds the fixed margins of an estimator.
type Config struct {
	// DeadlineEvasionUs is added to every measured update duration
	DeadlineEvasionUs int64
	// VblankDurationUs is the per-output cost that must complete before vblank
	VblankDurationUs int64
	// RenderTimeConstantUs is a constant safety margin
	RenderTimeConstantUs int64
	// DisableTripleBuffering caps the estimate at one refresh interval
	DisableTripleBuffering bool
	// DisableDynamic turns estimation off (no estimate is ever reported)
	DisableDynamic bool
}

// Sample is the timing of one presented frame, as seen by the estimator.
type Sample struct {
	PresentationTimeUs int64

	DispatchTimeUs     int64
	DispatchLatenessUs int64
	FlipTimeUs         int64

	// CPUTimeBeforeBufferSwapUs is 0 when the update had no swap boundary
	CPUTimeBeforeBufferSwapUs int64
	GPURenderingDurationUs    int64

	// HasMeasurements reports whether the GPU/CPU timings above are valid
	HasMeasurements bool
}

// Durations breaks one sample down into the terms of the update duration.
type Durations struct {
	DispatchToSwapUs      int64
	SwapToRenderingDoneUs int64
	SwapToFlipUs          int64
}

// Split computes the update duration terms of s.
func (s Sample) Split() Durations {
	var d Durations

	swapBoundaryUs := s.CPUTimeBeforeBufferSwapUs
	if swapBoundaryUs == 0 {
		// cursor-only update: no discrete swap, flip is measured from dispatch
		swapBoundaryUs = s.DispatchTimeUs
	} else {
		d.DispatchToSwapUs = s.CPUTimeBeforeBufferSwapUs - s.DispatchTimeUs
	}

	d.SwapToRenderingDoneUs = s.GPURenderingDurationUs
	if s.FlipTimeUs != 0 {
		d.SwapToFlipUs = s.FlipTimeUs - swapBoundaryUs
	}
	return d
}

// Estimator tracks short-term and long-term maximum update durations.
// It is not safe for concurrent use.
type Estimator struct {
	cfg Config

	longtermMaxUs       int64
	shorttermMaxUs      int64
	longtermPromotionUs int64

	everGotMeasurements      bool
	gotMeasurementsLastFrame bool
}

// New creates an estimator with no measurements.
func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the current margins.
func (e *Estimator) Config() Config {
	return e.cfg
}

// SetDeadlineEvasion changes the deadline evasion margin.
func (e *Estimator) SetDeadlineEvasion(us int64) {
	e.cfg.DeadlineEvasionUs = us
}

// SetDebugFlags toggles the debug switches of the estimator.
func (e *Estimator) SetDebugFlags(disableTripleBuffering, disableDynamic bool) {
	e.cfg.DisableTripleBuffering = disableTripleBuffering
	e.cfg.DisableDynamic = disableDynamic
}

// Observe feeds one presented frame. It returns whether the sample carried
// usable measurements.
func (e *Estimator) Observe(s Sample, refreshIntervalUs int64) bool {
	e.gotMeasurementsLastFrame = false

	if s.HasMeasurements {
		d := s.Split()
		updateUs := s.DispatchLatenessUs +
			d.DispatchToSwapUs +
			max(d.SwapToRenderingDoneUs, d.SwapToFlipUs) +
			e.cfg.DeadlineEvasionUs

		e.shorttermMaxUs = clamp(updateUs, e.shorttermMaxUs, 2*refreshIntervalUs)
		e.gotMeasurementsLastFrame = true
		e.everGotMeasurements = true
	}

	if e.everGotMeasurements {
		e.maybePromote(s.PresentationTimeUs)
	}
	return e.gotMeasurementsLastFrame
}

func (e *Estimator) maybePromote(presentationTimeUs int64) {
	if presentationTimeUs-e.longtermPromotionUs < PromotionIntervalUs {
		return
	}

	if e.longtermMaxUs > e.shorttermMaxUs {
		e.longtermMaxUs -= (e.longtermMaxUs - e.shorttermMaxUs) / 2
	} else {
		e.longtermMaxUs = e.shorttermMaxUs
	}

	e.shorttermMaxUs = 0
	e.longtermPromotionUs = presentationTimeUs
}

// MaxUpdateDurationUs is the larger of the long-term and short-term maxima.
func (e *Estimator) MaxUpdateDurationUs() int64 {
	return max(e.longtermMaxUs, e.shorttermMaxUs)
}

// MaxRenderTimeUs estimates how early before a presentation the update must
// start. ok is false until the first measurement arrives.
func (e *Estimator) MaxRenderTimeUs(refreshIntervalUs int64) (us int64, ok bool) {
	if !e.everGotMeasurements || e.cfg.DisableDynamic {
		return 0, false
	}

	capUs := 2 * refreshIntervalUs
	if e.cfg.DisableTripleBuffering {
		capUs = refreshIntervalUs
	}

	us = e.MaxUpdateDurationUs() + e.cfg.VblankDurationUs + e.cfg.RenderTimeConstantUs
	return clamp(us, 0, capUs), true
}

// State is a snapshot of the estimator.
type State struct {
	LongtermMaxUs            int64
	ShorttermMaxUs           int64
	LongtermPromotionUs      int64
	EverGotMeasurements      bool
	GotMeasurementsLastFrame bool
}

// State returns a snapshot of the estimator.
func (e *Estimator) State() State {
	return State{
		LongtermMaxUs:            e.longtermMaxUs,
		ShorttermMaxUs:           e.shorttermMaxUs,
		LongtermPromotionUs:      e.longtermPromotionUs,
		EverGotMeasurements:      e.everGotMeasurements,
		GotMeasurementsLastFrame: e.gotMeasurementsLastFrame,
	}
}

// DebugInfo renders the terms of the current max render time.
func (e *Estimator) DebugInfo(refreshIntervalUs int64) string {
	var b strings.Builder

	maxRenderTimeUs, ok := e.MaxRenderTimeUs(refreshIntervalUs)
	if !ok {
		fmt.Fprintf(&b, "Max render time: unavailable (no measurements yet)")
	} else {
		fmt.Fprintf(&b, "Max render time: %d µs", maxRenderTimeUs)
		if e.gotMeasurementsLastFrame {
			b.WriteString(" =")
		} else {
			b.WriteString(" (no measurements last frame)")
		}
	}

	fmt.Fprintf(&b, "\nVblank duration: %d µs +", e.cfg.VblankDurationUs)
	fmt.Fprintf(&b, "\nUpdate duration: %d µs +", e.MaxUpdateDurationUs())
	fmt.Fprintf(&b, "\nConstant: %d µs", e.cfg.RenderTimeConstantUs)
	return b.String()
}

// clamp bounds x to [low, high]; high wins when low > high.
func clamp[T constraints.Integer | constraints.Float](x, low, high T) T {
	if x > high {
		return high
	}
	if x < low {
		return low
	}
	return x
}
