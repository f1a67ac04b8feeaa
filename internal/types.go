package internal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

//go:generate mockgen -destination=./mock/mock_internal.go . Listener,Driver,Timeline,Observer

// Mode selects how the clock paces frames.
type Mode int

const (
	// ModeFixed locks frames to a fixed-rate vblank grid
	ModeFixed Mode = iota
	// ModeVariable paces frames for a variable refresh rate display
	ModeVariable
	// ModePassive leaves pacing to an external Driver; no timer is used
	ModePassive
)

// String returns a human-readable representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeVariable:
		return "variable"
	case ModePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// ParseMode parses "fixed", "variable" or "passive".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return ModeFixed, nil
	case "variable", "vrr":
		return ModeVariable, nil
	case "passive":
		return ModePassive, nil
	default:
		return ModeFixed, fmt.Errorf("unknown frame clock mode %q", s)
	}
}

// FrameResult is what the listener did with a dispatched frame.
type FrameResult int

const (
	// FrameResultPendingPresented: the frame was submitted, presentation feedback will follow
	FrameResultPendingPresented FrameResult = iota
	// FrameResultIdle: nothing needed drawing, the frame completes immediately
	FrameResultIdle
	// FrameResultIgnored: the frame was aborted before anything was submitted
	FrameResultIgnored
)

// String returns a human-readable representation of the result
func (r FrameResult) String() string {
	switch r {
	case FrameResultPendingPresented:
		return "pending-presented"
	case FrameResultIdle:
		return "idle"
	case FrameResultIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Frame is handed to the listener for every dispatch.
type Frame struct {
	// FrameCount is the dispatch counter of this frame
	FrameCount int64

	DispatchTimeUs     int64
	DispatchLatenessUs int64

	// TargetPresentationTimeUs is valid when HasTargetPresentationTime is set
	TargetPresentationTimeUs  int64
	HasTargetPresentationTime bool

	// FrameDeadlineUs is valid when HasFrameDeadline is set
	FrameDeadlineUs  int64
	HasFrameDeadline bool

	// Data carries listener-specific state created by a FrameFactory
	Data any
}

// Timer is the one-shot wake-up the clock arms. When it fires, its owner
// calls Clock.Dispatch.
type Timer interface {
	Arm(timeUs int64)
	Disarm()
}

// MonotonicClock reads the current monotonic time in microseconds.
type MonotonicClock interface {
	NowUs() int64
}

// Listener produces frames.
type Listener interface {
	// BeforeFrame runs before timelines advance
	BeforeFrame(frame *Frame)
	// Frame renders and submits the frame
	Frame(frame *Frame) FrameResult
}

// FrameFactory is optionally implemented by a Listener to allocate its own frames.
type FrameFactory interface {
	NewFrame() *Frame
}

// Driver paces a passive clock. ScheduleUpdate asks it to call
// Clock.Dispatch when it sees fit.
type Driver interface {
	ScheduleUpdate()
}

// Timeline is an animation advanced once per dispatch.
// Timelines are compared by identity; implement it on a pointer type.
type Timeline interface {
	Advance(timeUs int64)
}

// FrameReport is the timing record of one presented frame.
type FrameReport = history.Report

// Observer receives one report per presented frame.
type Observer interface {
	FramePresented(report FrameReport)
}

// Sample is the presentation feedback of one frame.
type Sample = presentation.Sample

// DebugFlags are per-clock debug switches.
type DebugFlags struct {
	DisableTripleBuffering      bool
	DisableDynamicMaxRenderTime bool
}

const (
	// DefaultRefreshRate is used when Config.RefreshRate is unset.
	DefaultRefreshRate = 60.0
	// DefaultRenderTimeConstantUs is the constant margin of the max render time.
	DefaultRenderTimeConstantUs = 1000
)

// Config configures a clock. Zero values are replaced by defaults where
// zero is not meaningful.
type Config struct {
	// RefreshRate in Hz (default 60)
	RefreshRate float64
	// MinimumRefreshRate is the VRR floor in Hz (default 30)
	MinimumRefreshRate float64

	// Mode must be ModeFixed or ModeVariable; use SetPassive for passive clocks
	Mode Mode

	VblankDurationUs     int64
	DeadlineEvasionUs    int64
	RenderTimeConstantUs int64

	Debug DebugFlags

	// HistorySize bounds the retained frame reports (default 64)
	HistorySize int
	// CadenceWindow is the number of presentations used for cadence stats (default 120)
	CadenceWindow int

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns a 60 Hz fixed-mode configuration.
func DefaultConfig() Config {
	return Config{
		RefreshRate:          DefaultRefreshRate,
		Mode:                 ModeFixed,
		RenderTimeConstantUs: DefaultRenderTimeConstantUs,
	}
}
