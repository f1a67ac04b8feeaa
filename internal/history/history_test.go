package history

import (
	"strings"
	"testing"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

func TestHistoryBounded(t *testing.T) {
	h, err := New(3)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	for i := int64(1); i <= 5; i++ {
		h.Add(Report{FrameCount: i, PresentationTimeUs: i * 16667})
	}

	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	if h.Evicted() != 2 {
		t.Errorf("Evicted() = %d, want 2", h.Evicted())
	}
	if _, ok := h.Get(1); ok {
		t.Error("Get(1) found an evicted report")
	}

	r, ok := h.Get(4)
	if !ok || r.PresentationTimeUs != 4*16667 {
		t.Errorf("Get(4) = %+v, %v", r, ok)
	}

	latest, ok := h.Latest()
	if !ok || latest.FrameCount != 5 {
		t.Errorf("Latest() = %+v, %v, want frame 5", latest, ok)
	}
}

func TestHistoryEmpty(t *testing.T) {
	h, err := New(0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, ok := h.Latest(); ok {
		t.Error("Latest() ok = true on empty history")
	}

	h.Add(Report{FrameCount: 1})
	h.Purge()
	if h.Len() != 0 {
		t.Errorf("Len() after Purge = %d", h.Len())
	}
}

func TestReportString(t *testing.T) {
	r := Report{FrameCount: 7, PresentationTimeUs: 100, PresentationFlags: presentation.FlagVsync}
	if s := r.String(); !strings.Contains(s, "frame 7") || !strings.Contains(s, "vsync") {
		t.Errorf("String() = %q", s)
	}
}
