// Package history keeps timing reports of recently presented frames.
package history

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

// DefaultCapacity is the number of reports kept by New(0).
const DefaultCapacity = 64

// Report is the timing record of one presented frame.
type Report struct {
	FrameCount int64 `msgpack:"frame_count" json:"frame_count"`

	DispatchTimeUs     int64 `msgpack:"dispatch_time_us" json:"dispatch_time_us"`
	DispatchLatenessUs int64 `msgpack:"dispatch_lateness_us" json:"dispatch_lateness_us"`
	FlipTimeUs         int64 `msgpack:"flip_time_us" json:"flip_time_us"`

	TargetPresentationTimeUs int64              `msgpack:"target_presentation_time_us" json:"target_presentation_time_us"`
	PresentationTimeUs       int64              `msgpack:"presentation_time_us" json:"presentation_time_us"`
	PresentationFlags        presentation.Flags `msgpack:"presentation_flags" json:"presentation_flags"`

	CPUTimeBeforeBufferSwapUs int64 `msgpack:"cpu_time_before_buffer_swap_us" json:"cpu_time_before_buffer_swap_us"`
	GPURenderingDurationUs    int64 `msgpack:"gpu_rendering_duration_us" json:"gpu_rendering_duration_us"`
	GotMeasurements           bool  `msgpack:"got_measurements" json:"got_measurements"`

	RefreshIntervalUs int64 `msgpack:"refresh_interval_us" json:"refresh_interval_us"`
	MissedFrames      int64 `msgpack:"missed_frames" json:"missed_frames"`

	// Estimator view after this frame was fed
	MaxRenderTimeUs  int64 `msgpack:"max_render_time_us" json:"max_render_time_us"`
	HasMaxRenderTime bool  `msgpack:"has_max_render_time" json:"has_max_render_time"`
	ShorttermMaxUs   int64 `msgpack:"shortterm_max_us" json:"shortterm_max_us"`
	LongtermMaxUs    int64 `msgpack:"longterm_max_us" json:"longterm_max_us"`
}

// String returns a one-line summary for logs.
func (r Report) String() string {
	return fmt.Sprintf("frame %d: presented=%dµs target=%dµs lateness=%dµs flags=%s",
		r.FrameCount, r.PresentationTimeUs, r.TargetPresentationTimeUs, r.DispatchLatenessUs, r.PresentationFlags)
}

// History is a bounded, least-recently-used store of reports keyed by frame count.
// Safe for concurrent use.
type History struct {
	cache   *lru.Cache[int64, Report]
	evicted atomic.Uint64
}

// New creates a history holding up to capacity reports.
func New(capacity int) (*History, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	h := &History{}
	cache, err := lru.NewWithEvict[int64, Report](capacity, h.onEvict)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	h.cache = cache
	return h, nil
}

func (h *History) onEvict(int64, Report) {
	h.evicted.Add(1)
}

// Add stores a report, replacing any report for the same frame.
func (h *History) Add(r Report) {
	h.cache.Add(r.FrameCount, r)
}

// Get returns the report of frameCount if it is still retained.
func (h *History) Get(frameCount int64) (Report, bool) {
	return h.cache.Get(frameCount)
}

// Latest returns the report with the highest frame count.
func (h *History) Latest() (Report, bool) {
	var (
		latest Report
		found  bool
	)
	for _, r := range h.cache.Values() {
		if !found || r.FrameCount > latest.FrameCount {
			latest, found = r, true
		}
	}
	return latest, found
}

// Len returns the number of retained reports.
func (h *History) Len() int {
	return h.cache.Len()
}

// Evicted returns how many reports were dropped to make room.
func (h *History) Evicted() uint64 {
	return h.evicted.Load()
}

// Purge drops every report.
func (h *History) Purge() {
	h.cache.Purge()
	h.evicted.Store(0)
}
