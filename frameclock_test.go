package frameclock_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/loop"
)

const refreshInterval60Hz = 16667

// vsyncDisplay presents every frame at its target time (or one refresh
// after dispatch) on the loop goroutine.
type vsyncDisplay struct {
	l         *loop.Loop
	clock     frameclock.FrameClock
	presented atomic.Int64
}

func (d *vsyncDisplay) BeforeFrame(*frameclock.Frame) {}

func (d *vsyncDisplay) Frame(f *frameclock.Frame) frameclock.FrameResult {
	at := f.DispatchTimeUs + refreshInterval60Hz
	if f.HasTargetPresentationTime {
		at = f.TargetPresentationTimeUs
	}
	d.l.AfterUs(at, func() {
		d.clock.NotifyPresented(frameclock.Sample{
			PresentationTimeUs: d.l.NowUs(),
			Flags:              frameclock.FlagVsync,
		})
		d.presented.Add(1)
	})
	return frameclock.FramePendingPresented
}

type animation struct{ advances int }

func (a *animation) Advance(int64) { a.advances++ }

func TestNewRejectsMissingCollaborators(t *testing.T) {
	if _, err := frameclock.New(frameclock.DefaultConfig(), nil, nil, nil); err == nil {
		t.Error("New() succeeded without timer, clock and listener")
	}
}

func TestClockRunsOnLoop(t *testing.T) {
	l := loop.New(0)
	d := &vsyncDisplay{l: l}

	cfg := frameclock.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	clock, err := frameclock.New(cfg, l, l, d)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	d.clock = clock
	l.OnDispatch(func(nowUs int64) { clock.Dispatch(nowUs) })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer l.Stop()

	anim := &animation{}
	l.Post(func() { clock.AddTimeline(anim) })

	deadline := time.Now().Add(2 * time.Second)
	for d.presented.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	var stats frameclock.Stats
	var advances int
	l.Call(context.Background(), func() {
		stats = clock.Stats()
		advances = anim.advances
		clock.Destroy()
	})

	if d.presented.Load() < 5 {
		t.Fatalf("presented %d frames in 2s, want at least 5", d.presented.Load())
	}
	if stats.FrameCount < 5 || advances < 5 {
		t.Errorf("FrameCount = %d, timeline advances = %d", stats.FrameCount, advances)
	}
	if stats.Mode != "fixed" {
		t.Errorf("Mode = %q", stats.Mode)
	}
}
