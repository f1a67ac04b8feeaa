// Package loop runs a frame clock on a single goroutine.
//
// The clock has no locking: every call into it must happen on one thread.
// Loop provides that thread, plus the one-shot timer and monotonic time
// source the clock needs.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// originUs offsets NowUs so that no valid reading is 0 (0 means unknown).
const originUs = 1_000_000

// DefaultQueueSize is the task queue capacity used by New(0).
const DefaultQueueSize = 256

// ErrStopped is returned when posting to a loop that is not running.
var ErrStopped = errors.New("loop: not running")

// Loop executes posted tasks in order on one goroutine.
//
// Goroutine topology:
//   - 1 fixed: run (spawned by Start, stopped by Stop)
//   - 0-N transient: time.AfterFunc callbacks, which only post tasks
//   - 0-1 transient: the context.AfterFunc stopping the loop with Start's ctx
//
// Thread-safety: Post, Call, NowUs, Start and Stop are safe for concurrent
// use. Arm, Disarm and AfterUs must be called from a task.
type Loop struct {
	origin time.Time
	tasks  chan func()

	// --- Frame clock timer (loop goroutine only) ---

	dispatch   func(nowUs int64)
	timer      *time.Timer
	generation uint64

	// --- Lifecycle ---

	// ctx is set once by New; Start only links it to the caller's context
	ctx      context.Context
	cancel   context.CancelFunc
	stopLink func() bool
	wg       sync.WaitGroup

	startedMu sync.Mutex
	started   bool
}

// New creates a stopped loop.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Loop{
		origin: time.Now(),
		tasks:  make(chan func(), queueSize),
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l
}

// OnDispatch sets the callback run when the armed time is reached.
// Call before Start.
func (l *Loop) OnDispatch(fn func(nowUs int64)) {
	l.dispatch = fn
}

// NowUs reads the loop's monotonic clock.
func (l *Loop) NowUs() int64 {
	return originUs + time.Since(l.origin).Microseconds()
}

// Start spawns the loop goroutine. It runs until ctx is done or Stop is
// called. A stopped loop cannot be restarted.
func (l *Loop) Start(ctx context.Context) error {
	l.startedMu.Lock()
	defer l.startedMu.Unlock()

	if l.started {
		return fmt.Errorf("loop already started")
	}
	if l.ctx.Err() != nil {
		return ErrStopped
	}

	l.stopLink = context.AfterFunc(ctx, l.cancel)
	l.started = true

	l.wg.Add(1)
	go l.run()

	slog.Debug("loop: started", "queue_size", cap(l.tasks))
	return nil
}

// Stop cancels the loop and waits for it to exit. Idempotent.
func (l *Loop) Stop() error {
	l.startedMu.Lock()
	if !l.started {
		l.startedMu.Unlock()
		return nil
	}
	l.started = false
	l.startedMu.Unlock()

	l.stopLink()
	l.cancel()
	l.wg.Wait()

	slog.Debug("loop: stopped")
	return nil
}

func (l *Loop) run() {
	defer l.wg.Done()
	defer l.stopTimer()

	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	if l.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case <-l.ctx.Done():
		return ErrStopped
	case l.tasks <- fn:
		return nil
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrStopped
	}
}

// Arm schedules the dispatch callback at timeUs, replacing any earlier arm.
func (l *Loop) Arm(timeUs int64) {
	l.stopTimer()
	l.generation++
	gen := l.generation

	l.timer = l.AfterUs(timeUs, func() {
		if gen != l.generation || l.dispatch == nil {
			return
		}
		l.timer = nil
		l.dispatch(l.NowUs())
	})
}

// Disarm cancels a pending dispatch.
func (l *Loop) Disarm() {
	l.stopTimer()
	l.generation++
}

func (l *Loop) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// AfterUs runs fn on the loop once NowUs reaches timeUs.
// The returned timer can be stopped to cancel.
func (l *Loop) AfterUs(timeUs int64, fn func()) *time.Timer {
	delay := time.Duration(timeUs-l.NowUs()) * time.Microsecond
	if delay < 0 {
		delay = 0
	}
	return time.AfterFunc(delay, func() {
		// dropped once the loop is stopped
		_ = l.Post(fn)
	})
}
