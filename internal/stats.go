package internal

import (
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/cadence"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/reportbus"
)

// Stats is a snapshot of a clock.
type Stats struct {
	ClockID string `json:"clock_id"`

	State string `json:"state"`
	Mode  string `json:"mode"`

	RefreshRate       float64 `json:"refresh_rate"`
	RefreshIntervalUs int64   `json:"refresh_interval_us"`
	FrameCount        int64   `json:"frame_count"`

	FramesInFlight int `json:"frames_in_flight"`
	PoolSlotsInUse int `json:"pool_slots_in_use"`
	InhibitCount   int `json:"inhibit_count"`
	Timelines      int `json:"timelines"`
	DeferredWakes  int `json:"deferred_wakes"`

	NextUpdateTimeUs       int64 `json:"next_update_time_us"`
	NextPresentationTimeUs int64 `json:"next_presentation_time_us"`

	MissedFrames int64             `json:"missed_frames"`
	Warnings     map[string]uint64 `json:"warnings"`

	MaxRenderTimeUs  int64           `json:"max_render_time_us"`
	HasMaxRenderTime bool            `json:"has_max_render_time"`
	Estimator        estimator.State `json:"estimator"`

	Cadence cadence.Stats `json:"cadence"`

	Reports reportbus.Stats `json:"reports"`
}

// Stats returns a snapshot of the clock.
func (c *Clock) Stats() Stats {
	s := Stats{
		ClockID:                c.id.String(),
		State:                  c.state.String(),
		Mode:                   c.mode.String(),
		RefreshRate:            c.refreshRate,
		RefreshIntervalUs:      c.refreshIntervalUs,
		FrameCount:             c.frameCount,
		FramesInFlight:         c.state.InFlight(),
		PoolSlotsInUse:         c.pool.InUse(),
		InhibitCount:           c.inhibitCount,
		Timelines:              len(c.timelines),
		DeferredWakes:          c.deferred.Len(),
		NextUpdateTimeUs:       c.nextUpdateTimeUs,
		NextPresentationTimeUs: c.nextPresentationTimeUs,
		MissedFrames:           c.missedFrames,
		Warnings:               c.warnings.Snapshot(),
		Estimator:              c.estimator.State(),
		Cadence:                c.cadence.Stats(c.refreshIntervalUs),
		Reports:                c.reports.Stats(),
	}
	s.MaxRenderTimeUs, s.HasMaxRenderTime = c.estimator.MaxRenderTimeUs(c.refreshIntervalUs)
	return s
}

// FrameReport returns the report of a recently presented frame.
func (c *Clock) FrameReport(frameCount int64) (FrameReport, bool) {
	return c.history.Get(frameCount)
}

// MaxRenderTimeDebugInfo describes how the current max render time is made up.
func (c *Clock) MaxRenderTimeDebugInfo() string {
	return c.estimator.DebugInfo(c.refreshIntervalUs)
}
