// Package internal implements the frame clock state machine.
//
// This package is INTERNAL - clients MUST use public API in parent package.
package internal

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/cadence"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/deferred"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/framepool"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/reportbus"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/schedule"
)

// Clock paces the frames of one output.
//
// Call topology:
//   - Timer fires → Dispatch → Listener.BeforeFrame, timelines, Listener.Frame
//   - Backend completion → NotifyPresented / NotifyReady → maybeReschedule
//   - Callers → ScheduleUpdate* / Inhibit / AddFutureTime
//
// Thread-safety: none. Every method must run on the event loop that owns
// the clock, except Warnings, Subscribe, Unsubscribe and ReportStats.
type Clock struct {
	id     uuid.UUID
	logger *slog.Logger

	// --- Collaborators ---

	timer    Timer
	now      MonotonicClock
	listener Listener
	driver   Driver   // set while passive
	observer Observer // optional, called on the loop
	reports  reportbus.Bus

	// --- Cadence ---

	mode                     Mode
	refreshRate              float64
	refreshIntervalUs        int64
	minimumRefreshRate       float64
	maximumRefreshIntervalUs int64
	vblankDurationUs         int64
	debug                    DebugFlags

	// --- State machine ---

	state      State
	frameCount int64
	destroyed  bool

	nextUpdateTimeUs       int64
	nextPresentationTimeUs int64 // 0 = invalid
	nextFrameDeadlineUs    int64 // 0 = invalid
	laterTargetUs          int64 // target of the current *_LATER state
	lastFrameSyncUs        int64 // last dispatch that submitted a frame
	timerArmed             bool

	inhibitCount         int
	pendingReschedule    bool
	pendingRescheduleNow bool
	pendingLaterUs       int64

	// --- Frames ---

	pool                 framepool.Pool
	prevDispatch         framepool.Handle
	nextPresentation     framepool.Handle
	nextNextPresentation framepool.Handle
	prevPresentation     framepool.Handle

	// --- Feedback ---

	estimator *estimator.Estimator
	deferred  deferred.Queue
	timelines []Timeline
	cadence   *cadence.Window
	history   *history.History

	missedFrames             int64
	missedFramesSinceReport  int64
	lastMissedFramesReportUs int64

	warnings WarnCounters
}

// NewClock creates a clock in StateInit (called by public New() in parent package).
func NewClock(cfg Config, timer Timer, now MonotonicClock, listener Listener) (*Clock, error) {
	if timer == nil || now == nil || listener == nil {
		return nil, fmt.Errorf("frame clock needs a timer, a monotonic clock and a listener")
	}
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = DefaultRefreshRate
	}
	if cfg.MinimumRefreshRate <= 0 {
		cfg.MinimumRefreshRate = schedule.MinimumRefreshRate
	}
	if cfg.Mode == ModePassive {
		// a passive clock needs a driver, which only SetPassive provides
		cfg.Mode = ModeFixed
	}

	hist, err := history.New(cfg.HistorySize)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()

	c := &Clock{
		id:                   id,
		logger:               logger.With("clock_id", id.String()),
		timer:                timer,
		now:                  now,
		listener:             listener,
		mode:                 cfg.Mode,
		minimumRefreshRate:   cfg.MinimumRefreshRate,
		vblankDurationUs:     cfg.VblankDurationUs,
		debug:                cfg.Debug,
		state:                StateInit,
		prevDispatch:         framepool.None,
		nextPresentation:     framepool.None,
		nextNextPresentation: framepool.None,
		prevPresentation:     framepool.None,
		estimator: estimator.New(estimator.Config{
			DeadlineEvasionUs:      cfg.DeadlineEvasionUs,
			VblankDurationUs:       cfg.VblankDurationUs,
			RenderTimeConstantUs:   cfg.RenderTimeConstantUs,
			DisableTripleBuffering: cfg.Debug.DisableTripleBuffering,
			DisableDynamic:         cfg.Debug.DisableDynamicMaxRenderTime,
		}),
		cadence: cadence.NewWindow(cfg.CadenceWindow),
		history: hist,
		reports: reportbus.New(),
	}
	c.applyRefreshRate(cfg.RefreshRate)

	c.logger.Debug("frame-clock: created",
		"mode", c.mode.String(),
		"refresh_rate", c.refreshRate,
		"refresh_interval_us", c.refreshIntervalUs,
	)
	return c, nil
}

// ID identifies the clock in logs and telemetry.
func (c *Clock) ID() uuid.UUID { return c.id }

// State returns the current state.
func (c *Clock) State() State { return c.state }

// Mode returns the current mode.
func (c *Clock) Mode() Mode { return c.mode }

// IsPassive reports whether an external driver paces the clock.
func (c *Clock) IsPassive() bool { return c.mode == ModePassive }

// FrameCount returns the number of dispatches so far.
func (c *Clock) FrameCount() int64 { return c.frameCount }

// RefreshRate returns the refresh rate in Hz.
func (c *Clock) RefreshRate() float64 { return c.refreshRate }

// RefreshIntervalUs returns the refresh interval.
func (c *Clock) RefreshIntervalUs() int64 { return c.refreshIntervalUs }

// NextUpdateTimeUs returns when the clock wants to dispatch next.
func (c *Clock) NextUpdateTimeUs() int64 { return c.nextUpdateTimeUs }

// NextPresentationTimeUs returns the predicted presentation time of the next frame.
func (c *Clock) NextPresentationTimeUs() (int64, bool) {
	return c.nextPresentationTimeUs, c.nextPresentationTimeUs != 0
}

// NextFrameDeadlineUs returns the deadline of the next frame.
func (c *Clock) NextFrameDeadlineUs() (int64, bool) {
	return c.nextFrameDeadlineUs, c.nextFrameDeadlineUs != 0
}

// PendingReschedule reports the deferred request: pending, and whether it
// asks for an immediate update.
func (c *Clock) PendingReschedule() (pending, now bool) {
	return c.pendingReschedule, c.pendingRescheduleNow
}

// Warnings returns the misuse counters.
func (c *Clock) Warnings() *WarnCounters { return &c.warnings }

// SetObserver installs an observer of presented frames (nil removes it).
// It runs on the loop; slow consumers should Subscribe instead.
func (c *Clock) SetObserver(o Observer) { c.observer = o }

// Subscribe delivers a copy of every frame report to ch. Delivery never
// blocks the loop: reports that do not fit in ch are dropped and counted.
func (c *Clock) Subscribe(id string, ch chan<- FrameReport) error {
	return c.reports.Subscribe(id, ch)
}

// Unsubscribe stops delivering reports to id. Its channel is left open.
func (c *Clock) Unsubscribe(id string) error {
	return c.reports.Unsubscribe(id)
}

// ReportStats returns the delivery counters of the report subscribers.
func (c *Clock) ReportStats() reportbus.Stats { return c.reports.Stats() }

// Destroy disarms the timer and drops every frame, timeline and deferred
// wake-up. The clock ignores further scheduling requests.
func (c *Clock) Destroy() {
	if c.destroyed {
		return
	}

	c.disarm()
	c.pool.Clear(&c.prevDispatch)
	c.pool.Clear(&c.nextPresentation)
	c.pool.Clear(&c.nextNextPresentation)
	c.pool.Clear(&c.prevPresentation)
	c.timelines = nil
	c.deferred.Clear()
	c.observer = nil
	c.reports.Close()
	c.driver = nil
	c.destroyed = true

	c.logger.Debug("frame-clock: destroyed",
		"state", c.state.String(),
		"frame_count", c.frameCount,
	)
}

func (c *Clock) warn(cat WarnCategory, msg string, args ...any) {
	c.warnings.inc(cat)
	args = append(args, "state", c.state.String(), "category", cat.String())
	c.logger.Warn("frame-clock: "+msg, args...)
}

func (c *Clock) arm(timeUs int64) {
	if c.mode == ModePassive {
		return
	}
	if c.timerArmed {
		c.timer.Disarm()
	}
	c.nextUpdateTimeUs = timeUs
	c.timer.Arm(timeUs)
	c.timerArmed = true
}

func (c *Clock) disarm() {
	if !c.timerArmed {
		return
	}
	c.timer.Disarm()
	c.timerArmed = false
}

func (c *Clock) invalidatePredictions() {
	c.nextPresentationTimeUs = 0
	c.nextFrameDeadlineUs = 0
}

func (c *Clock) applyRefreshRate(rateHz float64) {
	c.refreshRate = rateHz
	c.refreshIntervalUs = schedule.RefreshIntervalUs(rateHz)
	c.maximumRefreshIntervalUs = schedule.RefreshIntervalUs(c.minimumRefreshRate)
	if c.maximumRefreshIntervalUs < c.refreshIntervalUs {
		c.maximumRefreshIntervalUs = c.refreshIntervalUs
	}
}
