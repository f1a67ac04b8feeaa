// Package frameclock paces the frames of one compositor output.
//
// # Philosophy
//
// "Start as late as possible, never miss the flip."
//
// A frame started too early shows stale input; a frame started too late misses
// its vblank and the previous image stays on screen for another refresh. The
// clock predicts the next presentation, subtracts a learned worst-case render
// time, and arms a one-shot timer at that instant.
//
// # Design Principles
//
//  1. Single-threaded: no locks, every call comes from the owner's event loop
//  2. Caller-owned time: the clock arms a Timer and reads a MonotonicClock, never the wall clock
//  3. Bounded pipeline: at most two frames in flight, three frame slots total
//  4. Learned deadlines: short-term max ratchets up per frame, long-term max decays once per second
//  5. Misuse is counted, not fatal: warnings are logged and exposed in Stats
//
// # State Machine
//
//	INIT → SCHEDULED{,_NOW,_LATER} → DISPATCHED_ONE → IDLE
//	                                       ↓ ↑
//	                 DISPATCHED_ONE_AND_SCHEDULED{,_NOW,_LATER} → DISPATCHED_TWO
//
// Dispatch moves one level down (another frame in flight), NotifyPresented and
// NotifyReady move one level up. Inhibit collapses any pending schedule and
// remembers what was requested; the last Uninhibit replays it.
//
// # Modes
//
//   - Fixed: frames align to a fixed vblank grid (refresh interval = round(1e6/rate))
//   - Variable: the display follows the client; frames start as soon as they are
//     due, with an idle timeout at the minimum refresh rate
//   - Passive: an external Driver decides when to dispatch
//
// # Basic Usage
//
// The clock is driven by an event loop. internal/loop provides one:
//
//	l := loop.New(0)
//	clock, err := frameclock.New(frameclock.DefaultConfig(), l, l, listener)
//	if err != nil {
//	    return err
//	}
//	l.OnDispatch(func(nowUs int64) { clock.Dispatch(nowUs) })
//	l.Start(ctx)
//	defer l.Stop()
//
//	l.Post(clock.ScheduleUpdate)
//
// The backend reports completion from the loop goroutine:
//
//	clock.NotifyPresented(frameclock.Sample{
//	    PresentationTimeUs: pageFlipUs,
//	    Flags:              frameclock.FlagVsync | frameclock.FlagHWClock,
//	})
//
// # Observability
//
// Stats returns a JSON-friendly snapshot (state, refresh rate, frames in
// flight, missed frames, estimator state, presentation cadence, warning
// counters). SetObserver receives one FrameReport per presented frame on the
// loop. Subscribe hands the same reports to a channel instead, dropping
// (and counting) those a slow consumer has no room for; the trace package
// records them to disk and cmd/frameclock-replay replays them.
package frameclock
