package trace

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

const interval60Hz = 16667

// measuredReport builds a report whose implied update duration is 8000µs
// (cpu 5000 after dispatch, gpu 3000, swap to flip 2000).
func measuredReport(frameCount, presentationUs int64) history.Report {
	dispatchUs := presentationUs - 20000
	return history.Report{
		FrameCount:                frameCount,
		DispatchTimeUs:            dispatchUs,
		CPUTimeBeforeBufferSwapUs: dispatchUs + 5000,
		GPURenderingDurationUs:    3000,
		FlipTimeUs:                dispatchUs + 7000,
		PresentationTimeUs:        presentationUs,
		PresentationFlags:         presentation.FlagVsync | presentation.FlagHWClock,
		GotMeasurements:           true,
		RefreshIntervalUs:         interval60Hz,
		MaxRenderTimeUs:           9000,
		HasMaxRenderTime:          true,
		ShorttermMaxUs:            8000,
	}
}

func writeTrace(t *testing.T, reports ...history.Report) (*bytes.Buffer, Header) {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{InstanceID: "bench", RefreshRate: 60, Mode: "fixed"})
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}
	for _, r := range reports {
		w.FramePresented(r)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if w.Frames() != int64(len(reports)) {
		t.Fatalf("Frames() = %d, want %d", w.Frames(), len(reports))
	}
	return &buf, w.Header()
}

func TestWriteRead(t *testing.T) {
	reports := []history.Report{
		measuredReport(1, 100_000),
		measuredReport(2, 116_667),
		measuredReport(3, 133_334),
	}
	buf, written := writeTrace(t, reports...)

	r, err := NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader() failed: %v", err)
	}

	hdr := r.Header()
	if hdr.SessionID == uuid.Nil || hdr.SessionID != written.SessionID {
		t.Errorf("SessionID = %v, want %v", hdr.SessionID, written.SessionID)
	}
	if hdr.Version != Version || hdr.InstanceID != "bench" || hdr.RefreshRate != 60 {
		t.Errorf("header = %+v", hdr)
	}
	if !hdr.StartedAt.Equal(written.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", hdr.StartedAt, written.StartedAt)
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(got) != len(reports) {
		t.Fatalf("read %d reports, want %d", len(got), len(reports))
	}
	for i := range reports {
		if got[i] != reports[i] {
			t.Errorf("report %d = %+v, want %+v", i, got[i], reports[i])
		}
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestReaderCorrupt(t *testing.T) {
	full, _ := writeTrace(t, measuredReport(1, 100_000))
	data := full.Bytes()

	t.Run("empty", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(nil))
		if !errors.Is(err, ErrTraceCorrupt) {
			t.Errorf("NewReader(empty) = %v, want ErrTraceCorrupt", err)
		}
	})

	t.Run("truncated record", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(data[:len(data)-3]))
		if err != nil {
			t.Fatalf("NewReader() failed: %v", err)
		}
		if _, err := r.Next(); !errors.Is(err, ErrTraceCorrupt) {
			t.Errorf("Next() = %v, want ErrTraceCorrupt", err)
		}
	})

	t.Run("truncated length", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(data[:2]))
		if !errors.Is(err, ErrTraceCorrupt) {
			t.Errorf("NewReader() = %v, want ErrTraceCorrupt", err)
		}
	})

	t.Run("oversized length", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
		if !errors.Is(err, ErrTraceCorrupt) {
			t.Errorf("NewReader() = %v, want ErrTraceCorrupt", err)
		}
	})
}

func TestReplayReproducesRecording(t *testing.T) {
	reports := []history.Report{
		measuredReport(1, 100_000),
		measuredReport(2, 116_667),
		measuredReport(3, 133_334),
	}

	res := Replay(reports, estimator.Config{RenderTimeConstantUs: 1000})

	if len(res.Points) != 3 {
		t.Fatalf("Points = %d, want 3", len(res.Points))
	}
	if res.Diverged != 0 {
		t.Errorf("Diverged = %d, want 0", res.Diverged)
	}
	for _, p := range res.Points {
		if !p.HasMaxRenderTime || p.MaxRenderTimeUs != 9000 || p.ShorttermMaxUs != 8000 {
			t.Errorf("point = %+v", p)
		}
	}
	if res.Cadence.Presentations != 3 {
		t.Errorf("Cadence.Presentations = %d, want 3", res.Cadence.Presentations)
	}
}

func TestReplayWithDifferentMargins(t *testing.T) {
	reports := []history.Report{measuredReport(1, 100_000), measuredReport(2, 116_667)}

	res := Replay(reports, estimator.Config{RenderTimeConstantUs: 2000})

	if res.Diverged != 2 {
		t.Errorf("Diverged = %d, want 2", res.Diverged)
	}
	if got := res.Points[1].MaxRenderTimeUs; got != 10000 {
		t.Errorf("MaxRenderTimeUs = %d, want 10000", got)
	}
}

func TestReplayEmpty(t *testing.T) {
	res := Replay(nil, estimator.Config{})
	if len(res.Points) != 0 || res.Diverged != 0 || res.Cadence.Presentations != 0 {
		t.Errorf("Replay(nil) = %+v", res)
	}
}

func TestHeaderDefaults(t *testing.T) {
	before := time.Now()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{})
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}
	hdr := w.Header()
	if hdr.SessionID == uuid.Nil || hdr.StartedAt.Before(before) || hdr.Version != Version {
		t.Errorf("header = %+v", hdr)
	}
}

func TestConsumeDrainsSubscription(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{RefreshRate: 60})
	if err != nil {
		t.Fatal(err)
	}

	reports := make(chan history.Report, 8)
	for i := int64(0); i < 5; i++ {
		reports <- measuredReport(i, 1_000_000+i*interval60Hz)
	}
	close(reports)

	w.Consume(reports)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	if w.Frames() != 5 {
		t.Errorf("Frames() = %d, want 5", w.Frames())
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadAll()
	if err != nil || len(got) != 5 || got[4].FrameCount != 4 {
		t.Errorf("ReadAll() = %d reports, %v", len(got), err)
	}
}
