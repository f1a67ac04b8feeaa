// Package schedule computes when a frame clock should wake up next.
//
// Every function is pure: the caller snapshots its state into an Input and
// receives a Result. Times are monotonic microseconds; 0 means unknown.
package schedule

import (
	"golang.org/x/exp/constraints"
)

const (
	// SyncDelayFallbackFraction of a refresh interval is used as the max
	// render time while no estimate is available.
	SyncDelayFallbackFraction = 0.875

	// MinimumRefreshRate is the VRR floor used for the idle timeout.
	MinimumRefreshRate = 30.0
)

// RefreshIntervalUs converts a refresh rate in Hz to a rounded interval.
func RefreshIntervalUs(rateHz float64) int64 {
	return int64(0.5 + 1e6/rateHz)
}

// Input is the clock state the formulas read.
type Input struct {
	NowUs             int64
	RefreshIntervalUs int64
	VblankDurationUs  int64

	// MaxRenderTimeUs is only meaningful when HasMaxRenderTime is set
	MaxRenderTimeUs  int64
	HasMaxRenderTime bool

	// LastPresentationUs is the actual presentation time of the newest
	// presented frame
	LastPresentationUs    int64
	LastPresentationVsync bool

	// LastDispatchUs and LastDispatchLatenessUs describe the newest dispatch
	LastDispatchUs         int64
	LastDispatchLatenessUs int64

	// PreviousTargetUs is the presentation time predicted by the previous
	// computation, 0 when that prediction was invalidated
	PreviousTargetUs int64

	// FramesAhead is how many refresh intervals separate the last
	// presentation from the frame being scheduled: 1, 2 or 3
	FramesAhead int
}

// Result is the outcome of one scheduling computation.
type Result struct {
	UpdateTimeUs       int64
	PresentationTimeUs int64
	FrameDeadlineUs    int64
}

// HasPresentationTime reports whether a presentation time was predicted.
func (r Result) HasPresentationTime() bool { return r.PresentationTimeUs != 0 }

// HasFrameDeadline reports whether a frame deadline was predicted.
func (r Result) HasFrameDeadline() bool { return r.FrameDeadlineUs != 0 }

// MaxRenderTimeAllowedUs returns the estimate, or the fallback fraction of
// a refresh interval when there is none.
func (in Input) MaxRenderTimeAllowedUs() int64 {
	if in.HasMaxRenderTime {
		return in.MaxRenderTimeUs
	}
	return int64(float64(in.RefreshIntervalUs) * SyncDelayFallbackFraction)
}

// noPresentation is used by both formulas while nothing was presented yet:
// one interval after the last ideal dispatch, or right away.
func noPresentation(in Input) Result {
	if in.LastDispatchUs == 0 {
		return Result{UpdateTimeUs: in.NowUs}
	}
	return Result{
		UpdateTimeUs: in.LastDispatchUs - in.LastDispatchLatenessUs + in.RefreshIntervalUs,
	}
}

// Fixed computes the next update for a vsync-locked display.
func Fixed(in Input) Result {
	if in.LastPresentationUs == 0 {
		return noPresentation(in)
	}

	refreshIntervalUs := in.RefreshIntervalUs
	maxRenderTimeUs := in.MaxRenderTimeAllowedUs()
	minRenderTimeUs := min(refreshIntervalUs/2, maxRenderTimeUs)

	smoothUs := in.LastPresentationUs + int64(max(in.FramesAhead, 1))*refreshIntervalUs
	nextUs := smoothUs

	if nextUs < in.NowUs {
		// resuming after an idle period: align to the next boundary
		phaseUs := (in.NowUs - in.LastPresentationUs) % refreshIntervalUs
		nextUs = in.NowUs - phaseUs + refreshIntervalUs
	} else if in.PreviousTargetUs != 0 {
		// the previous frame was presented early, do not dispatch back to back
		sinceUs := nextUs - in.PreviousTargetUs
		if sinceUs > 0 && sinceUs < refreshIntervalUs/2 {
			nextUs = in.PreviousTargetUs + refreshIntervalUs
		}
	}

	var updateUs int64
	if in.LastPresentationVsync && nextUs != smoothUs {
		// idle gap since the last vsync'd frame: start right away
		updateUs = in.NowUs
	} else {
		for nextUs-minRenderTimeUs < in.NowUs {
			nextUs += refreshIntervalUs
		}
		updateUs = max(nextUs-maxRenderTimeUs, in.NowUs)
	}

	return Result{
		UpdateTimeUs:       updateUs,
		PresentationTimeUs: nextUs,
		FrameDeadlineUs:    nextUs - in.VblankDurationUs,
	}
}

// Variable computes the next update for a VRR display with content to show.
func Variable(in Input) Result {
	if in.LastPresentationUs == 0 {
		return noPresentation(in)
	}

	nextUs := in.LastPresentationUs + in.RefreshIntervalUs
	updateUs := max(nextUs-in.MaxRenderTimeAllowedUs(), in.NowUs)

	if nextUs < updateUs {
		deadlineUs := updateUs
		if updateUs == in.NowUs {
			deadlineUs += in.RefreshIntervalUs
		}
		return Result{UpdateTimeUs: updateUs, FrameDeadlineUs: deadlineUs}
	}

	return Result{
		UpdateTimeUs:       updateUs,
		PresentationTimeUs: nextUs,
		FrameDeadlineUs:    nextUs - in.VblankDurationUs,
	}
}

// TimeoutIntervalUs picks the VRR idle timeout: the refresh interval while
// frames were recently synced, the maximum refresh interval otherwise.
func TimeoutIntervalUs(nowUs, lastFrameSyncUs, refreshIntervalUs, maximumRefreshIntervalUs int64) int64 {
	if lastFrameSyncUs != 0 && nowUs-lastFrameSyncUs <= maximumRefreshIntervalUs {
		return refreshIntervalUs
	}
	return maximumRefreshIntervalUs
}

// VariableTimeout computes the next wake-up of an idle VRR display.
func VariableTimeout(in Input, timeoutIntervalUs int64) int64 {
	if in.LastPresentationUs == 0 {
		if in.LastDispatchUs == 0 {
			return in.NowUs
		}
		return in.LastDispatchUs + timeoutIntervalUs
	}

	nextUs := in.LastPresentationUs + timeoutIntervalUs
	if nextUs < in.NowUs {
		nextUs += ceilDiv(in.NowUs-nextUs, timeoutIntervalUs) * timeoutIntervalUs
	}
	return nextUs
}

// FixedLater moves a natural fixed-mode result forward so the frame is
// presented no earlier than targetUs. ok is false when the natural
// presentation already satisfies the target.
func FixedLater(in Input, natural Result, targetUs int64) (Result, bool) {
	if !natural.HasPresentationTime() {
		return VariableLater(in, natural, targetUs)
	}
	if natural.PresentationTimeUs >= targetUs {
		return natural, false
	}

	cycles := ceilDiv(targetUs-natural.PresentationTimeUs, in.RefreshIntervalUs)
	shiftUs := cycles * in.RefreshIntervalUs
	presentationUs := natural.PresentationTimeUs + shiftUs

	return Result{
		UpdateTimeUs:       natural.UpdateTimeUs + shiftUs,
		PresentationTimeUs: presentationUs,
		FrameDeadlineUs:    presentationUs - in.VblankDurationUs,
	}, true
}

// VariableLater computes a VRR wake-up that presents at targetUs.
func VariableLater(in Input, natural Result, targetUs int64) (Result, bool) {
	if natural.HasPresentationTime() && natural.PresentationTimeUs >= targetUs {
		return natural, false
	}
	if !natural.HasPresentationTime() && natural.UpdateTimeUs >= targetUs {
		return natural, false
	}

	return Result{
		UpdateTimeUs:       max(targetUs-in.MaxRenderTimeAllowedUs(), in.NowUs),
		PresentationTimeUs: targetUs,
		FrameDeadlineUs:    targetUs - in.VblankDurationUs,
	}, true
}

// WantTripleBuffering reports whether a second frame may be dispatched
// before the first one is presented. Passive clocks never pipeline.
func WantTripleBuffering(passive, disabled bool, in Input) bool {
	if passive || disabled {
		return false
	}
	if in.HasMaxRenderTime && in.MaxRenderTimeUs < in.RefreshIntervalUs {
		return false
	}
	return true
}

// ceilDiv divides rounding up; both operands are positive.
func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}
