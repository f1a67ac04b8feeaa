// Package frameclock decides when a compositor should produce its next frame.
//
// Philosophy: "Start as late as possible, never miss the flip."
//
// Design:
//   - Single-threaded: every method runs on the caller's event loop
//   - One-shot timer owned by the caller (Timer), monotonic time in µs (MonotonicClock)
//   - Up to two frames in flight (triple buffering)
//   - Misuse is logged and counted, never returned as an error
package frameclock

import (
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/reportbus"
)

// Re-exported from the internal package. See internal/types.go for documentation.
type (
	Config         = internal.Config
	DebugFlags     = internal.DebugFlags
	Mode           = internal.Mode
	State          = internal.State
	Frame          = internal.Frame
	FrameResult    = internal.FrameResult
	FrameReport    = internal.FrameReport
	Sample         = internal.Sample
	Stats          = internal.Stats
	Timer          = internal.Timer
	MonotonicClock = internal.MonotonicClock
	Listener       = internal.Listener
	FrameFactory   = internal.FrameFactory
	Driver         = internal.Driver
	Timeline       = internal.Timeline
	Observer       = internal.Observer
	WarnCategory   = internal.WarnCategory

	PresentationFlags = presentation.Flags
	ReportStats       = reportbus.Stats
)

var (
	ErrSubscriberExists   = reportbus.ErrSubscriberExists
	ErrSubscriberNotFound = reportbus.ErrSubscriberNotFound
)

const (
	ModeFixed    = internal.ModeFixed
	ModeVariable = internal.ModeVariable
	ModePassive  = internal.ModePassive

	FramePendingPresented = internal.FrameResultPendingPresented
	FrameIdle             = internal.FrameResultIdle
	FrameIgnored          = internal.FrameResultIgnored

	FlagHWClock  = presentation.FlagHWClock
	FlagZeroCopy = presentation.FlagZeroCopy
	FlagVsync    = presentation.FlagVsync
)

// FrameClock is the public interface of a frame clock.
//
// Lifecycle:
//  1. clock, _ := frameclock.New(cfg, timer, now, listener)
//  2. clock.ScheduleUpdate()             // arms the timer
//  3. timer fires → clock.Dispatch(now)  // listener renders
//  4. backend → clock.NotifyPresented(sample) or clock.NotifyReady()
//  5. clock.Destroy()
//
// Thread-safety: none. All calls must come from one goroutine.
type FrameClock interface {
	// ScheduleUpdate requests a frame at the next natural slot.
	ScheduleUpdate()
	// ScheduleUpdateNow requests a frame as soon as possible.
	ScheduleUpdateNow()
	// ScheduleUpdateLater requests a frame presented no earlier than targetUs.
	ScheduleUpdateLater(targetUs int64)

	// Inhibit suspends scheduling; calls nest. Requests made meanwhile
	// are replayed by the last Uninhibit.
	Inhibit()
	Uninhibit()

	// Dispatch runs one frame. The timer owner calls it when the timer fires;
	// a passive driver calls it directly. Returns false if the clock could not dispatch.
	Dispatch(nowUs int64) bool

	// NotifyPresented reports that the oldest frame in flight reached the screen.
	NotifyPresented(sample Sample)
	// NotifyReady reports that the youngest frame completed without presenting.
	NotifyReady()
	// RecordFlipTime stamps the flip time on the oldest frame in flight.
	RecordFlipTime(flipTimeUs int64)

	// SetMode switches between fixed and variable pacing.
	SetMode(mode Mode)
	// SetPassive hands pacing to driver.
	SetPassive(driver Driver)
	SetRefreshRate(rateHz float64)
	SetDeadlineEvasion(us int64)
	SetDebugFlags(flags DebugFlags)

	// AddFutureTime registers a wake-up time; the clock schedules a frame for it.
	AddFutureTime(targetUs int64)
	AddTimeline(t Timeline)
	RemoveTimeline(t Timeline)

	SetObserver(o Observer)
	// Subscribe delivers frame reports to ch without ever blocking the loop.
	// Safe to call from any goroutine.
	Subscribe(id string, ch chan<- FrameReport) error
	Unsubscribe(id string) error
	ReportStats() ReportStats

	Mode() Mode
	State() State
	IsPassive() bool
	FrameCount() int64
	RefreshRate() float64

	// Stats returns a snapshot of the clock.
	Stats() Stats
	// FrameReport returns the timing record of a recently presented frame.
	FrameReport(frameCount int64) (FrameReport, bool)
	// MaxRenderTimeDebugInfo describes how the current max render time was derived.
	MaxRenderTimeDebugInfo() string

	// Destroy disarms the timer and releases every frame. Valid from any state.
	Destroy()
}

var _ FrameClock = (*internal.Clock)(nil)

// DefaultConfig returns a 60 Hz fixed-mode configuration.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}

// ParseMode parses "fixed", "variable" (or "vrr") and "passive".
func ParseMode(s string) (Mode, error) {
	return internal.ParseMode(s)
}

// New creates a frame clock in the init state.
//
// timer is armed and disarmed by the clock; its owner must call Dispatch
// when it fires. now supplies monotonic time in microseconds.
//
// Returns: FrameClock interface (implementation is internal).
func New(cfg Config, timer Timer, now MonotonicClock, listener Listener) (FrameClock, error) {
	c, err := internal.NewClock(cfg, timer, now, listener)
	if err != nil {
		return nil, err
	}
	return c, nil
}
