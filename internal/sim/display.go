// Package sim drives a frame clock against a simulated display.
package sim

import (
	"math/rand"
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/loop"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

// DisplayOptions describes the simulated client and output.
type DisplayOptions struct {
	RenderCostUs   int64 // GPU time per frame
	RenderJitterUs int64 // uniform +/- jitter added to RenderCostUs
	CPUCostUs      int64 // CPU time between dispatch and buffer swap
	HWClock        bool  // report hardware presentation timestamps
	Seed           int64
}

// Display renders dispatched frames and flips them on a vblank grid.
// It implements internal.Listener; every method runs on the loop goroutine.
//
// Frame timeline:
//
//	dispatch ──cpu──▶ swap ──gpu──▶ done ──wait──▶ vblank (presented)
type Display struct {
	l     *loop.Loop
	clock *internal.Clock
	opts  DisplayOptions
	rng   *rand.Rand

	vblankOriginUs int64
	lastPresentUs  int64
	stopped        bool

	submitted atomic.Int64
	presented atomic.Int64
	late      atomic.Int64
}

// NewDisplay creates a display whose vblank grid starts now.
func NewDisplay(l *loop.Loop, opts DisplayOptions) *Display {
	return &Display{
		l:              l,
		opts:           opts,
		rng:            rand.New(rand.NewSource(opts.Seed)),
		vblankOriginUs: l.NowUs(),
	}
}

// Attach connects the clock the display reports to.
func (d *Display) Attach(clock *internal.Clock) {
	d.clock = clock
}

// BeforeFrame does nothing; input would be processed here.
func (d *Display) BeforeFrame(*internal.Frame) {}

// Frame simulates rendering and schedules the presentation.
func (d *Display) Frame(f *internal.Frame) internal.FrameResult {
	swapUs := f.DispatchTimeUs + d.opts.CPUCostUs
	gpuUs := d.renderCost()
	doneUs := swapUs + gpuUs

	presentUs := d.presentationTime(doneUs)
	if f.HasTargetPresentationTime && presentUs > f.TargetPresentationTimeUs {
		d.late.Add(1)
	}
	d.lastPresentUs = presentUs
	d.submitted.Add(1)

	flags := presentation.FlagVsync
	if d.clock.Mode() == internal.ModeVariable {
		flags = presentation.FlagNone
	}
	if d.opts.HWClock {
		flags |= presentation.FlagHWClock
	}

	d.l.AfterUs(presentUs, func() {
		if d.stopped {
			return
		}
		d.clock.RecordFlipTime(doneUs)
		d.clock.NotifyPresented(presentation.Sample{
			FrameCounter:                 f.FrameCount,
			PresentationTimeUs:           presentUs,
			Flags:                        flags,
			CPUTimeBeforeBufferSwapUs:    swapUs,
			GPURenderingDurationNs:       gpuUs * 1000,
			HasValidGPURenderingDuration: true,
		})
		d.presented.Add(1)
	})
	return internal.FrameResultPendingPresented
}

// Stop drops presentations still pending. Call from the loop.
func (d *Display) Stop() {
	d.stopped = true
}

func (d *Display) renderCost() int64 {
	cost := d.opts.RenderCostUs
	if j := d.opts.RenderJitterUs; j > 0 {
		cost += d.rng.Int63n(2*j+1) - j
	}
	return max(cost, 0)
}

// presentationTime returns when a frame finished at doneUs reaches the screen.
// Fixed outputs wait for the next vblank; VRR outputs flip immediately but
// never faster than the refresh rate. One frame per refresh at most.
func (d *Display) presentationTime(doneUs int64) int64 {
	intervalUs := d.clock.RefreshIntervalUs()
	earliest := doneUs
	if d.lastPresentUs != 0 {
		earliest = max(earliest, d.lastPresentUs+intervalUs)
	}

	if d.clock.Mode() == internal.ModeVariable {
		return earliest
	}

	// round up to the vblank grid
	sinceOrigin := earliest - d.vblankOriginUs
	cycles := (sinceOrigin + intervalUs - 1) / intervalUs
	return d.vblankOriginUs + cycles*intervalUs
}

// DisplayStats are the display's own counters.
type DisplayStats struct {
	Submitted int64 `json:"submitted"`
	Presented int64 `json:"presented"`
	Late      int64 `json:"late"`
}

// Stats returns the display counters. Safe for concurrent use.
func (d *Display) Stats() DisplayStats {
	return DisplayStats{
		Submitted: d.submitted.Load(),
		Presented: d.presented.Load(),
		Late:      d.late.Load(),
	}
}

// Animation is a timeline that counts its advances.
type Animation struct {
	advances atomic.Int64
	lastUs   atomic.Int64
}

// Advance records one step of the animation.
func (a *Animation) Advance(timeUs int64) {
	a.advances.Add(1)
	a.lastUs.Store(timeUs)
}

// Advances returns how many frames advanced the animation.
func (a *Animation) Advances() int64 { return a.advances.Load() }
