package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(0)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { l.Stop() })
	return l
}

func TestCallRunsOnLoop(t *testing.T) {
	l := startLoop(t)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if err := l.Post(func() { order = append(order, i) }); err != nil {
			t.Fatalf("Post() failed: %v", err)
		}
	}

	var n int
	if err := l.Call(context.Background(), func() { n = len(order) }); err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if n != 3 || order[0] != 0 || order[2] != 2 {
		t.Errorf("tasks ran out of order: %v", order)
	}
}

func TestArmDispatches(t *testing.T) {
	l := New(0)
	fired := make(chan int64, 1)
	l.OnDispatch(func(nowUs int64) { fired <- nowUs })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer l.Stop()

	var targetUs int64
	l.Call(context.Background(), func() {
		targetUs = l.NowUs() + 2000
		l.Arm(targetUs)
	})

	select {
	case nowUs := <-fired:
		if nowUs < targetUs {
			t.Errorf("dispatched at %d before armed time %d", nowUs, targetUs)
		}
	case <-time.After(time.Second):
		t.Fatal("armed timer never dispatched")
	}
}

func TestDisarmCancels(t *testing.T) {
	l := New(0)
	var fired atomic.Int32
	l.OnDispatch(func(int64) { fired.Add(1) })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer l.Stop()

	l.Call(context.Background(), func() {
		l.Arm(l.NowUs() + 5000)
		l.Disarm()
	})

	time.Sleep(30 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("disarmed timer dispatched %d times", n)
	}
}

func TestRearmReplacesPrevious(t *testing.T) {
	l := New(0)
	var fired atomic.Int32
	l.OnDispatch(func(int64) { fired.Add(1) })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer l.Stop()

	l.Call(context.Background(), func() {
		l.Arm(l.NowUs() + 1000)
		l.Arm(l.NowUs() + 2000)
	})

	time.Sleep(30 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("dispatched %d times, want 1", n)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(0)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := l.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}

	l.Stop()
	l.Stop()

	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post() after Stop = %v, want ErrStopped", err)
	}
}

func TestNowUsNeverZero(t *testing.T) {
	l := New(0)
	a := l.NowUs()
	b := l.NowUs()
	if a < originUs || b < a {
		t.Errorf("NowUs() = %d then %d", a, b)
	}
}

// Tasks posted while the loop is starting are kept and run in order.
func TestPostDuringStart(t *testing.T) {
	l := New(0)
	t.Cleanup(func() { l.Stop() })

	var ran atomic.Int64
	posted := make(chan error, 1)
	go func() {
		for i := 0; i < 50; i++ {
			if err := l.Post(func() { ran.Add(1) }); err != nil {
				posted <- err
				return
			}
		}
		posted <- nil
	}()

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := <-posted; err != nil {
		t.Fatalf("Post() failed: %v", err)
	}
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if n := ran.Load(); n != 50 {
		t.Errorf("ran %d tasks, want 50", n)
	}
}

func TestParentContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(0)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for l.Post(func() {}) == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post() after parent cancel = %v, want ErrStopped", err)
	}

	l.Stop()
	if err := l.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("restart = %v, want ErrStopped", err)
	}
}
