// Package presentation describes the feedback a display backend reports
// once a dispatched frame has reached the screen.
package presentation

import "strings"

// Flags are bit flags reported by the backend for one presentation.
type Flags uint32

const (
	FlagNone Flags = 0
	// FlagHWClock means the presentation timestamp came from the display hardware.
	FlagHWClock Flags = 1 << 0
	// FlagZeroCopy means the client buffer was scanned out without a composite copy.
	FlagZeroCopy Flags = 1 << 1
	// FlagVsync means the flip was synchronized to the vertical retrace.
	FlagVsync Flags = 1 << 2
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String returns a human-readable representation of the flags ("vsync|hw-clock")
func (f Flags) String() string {
	if f == FlagNone {
		return "none"
	}

	parts := make([]string, 0, 3)
	if f.Has(FlagVsync) {
		parts = append(parts, "vsync")
	}
	if f.Has(FlagHWClock) {
		parts = append(parts, "hw-clock")
	}
	if f.Has(FlagZeroCopy) {
		parts = append(parts, "zero-copy")
	}
	return strings.Join(parts, "|")
}

// Sample is an immutable record describing one completed present.
//
// All timestamps are microseconds on the monotonic clock; 0 means unknown.
type Sample struct {
	// FrameCounter is the backend's global frame counter
	FrameCounter int64
	// Sequence is the hardware vblank sequence number
	Sequence uint32
	// PresentationTimeUs is when the frame actually appeared on screen
	PresentationTimeUs int64
	// TargetPresentationTimeUs is the presentation time the frame was scheduled for
	TargetPresentationTimeUs int64
	// RefreshRate is the output refresh rate at presentation (Hz, 0 = unchanged)
	RefreshRate float64
	// Flags describe how the presentation happened
	Flags Flags

	// CPUTimeBeforeBufferSwapUs is the CPU timestamp right before the buffer swap.
	// 0 when there was no discrete swap boundary (cursor-only updates).
	CPUTimeBeforeBufferSwapUs int64
	// GPURenderingDurationNs is the GPU time spent rendering the frame
	GPURenderingDurationNs int64
	// HasValidGPURenderingDuration reports whether GPURenderingDurationNs was measured
	HasValidGPURenderingDuration bool
}

// HasMeasurements reports whether the sample carries usable update timings.
func (s Sample) HasMeasurements() bool {
	return s.HasValidGPURenderingDuration
}

// GPURenderingDurationUs converts the GPU duration to microseconds.
func (s Sample) GPURenderingDurationUs() int64 {
	return s.GPURenderingDurationNs / 1000
}
