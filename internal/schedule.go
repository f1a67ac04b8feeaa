package internal

import (
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/framepool"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/schedule"
)

// ScheduleUpdate requests a frame at the natural next deadline.
func (c *Clock) ScheduleUpdate() {
	c.request(requestNormal, 0)
}

// ScheduleUpdateNow requests a frame as soon as possible.
func (c *Clock) ScheduleUpdateNow() {
	c.request(requestNow, 0)
}

// ScheduleUpdateLater requests a frame presented no earlier than targetUs.
func (c *Clock) ScheduleUpdateLater(targetUs int64) {
	c.request(requestLater, targetUs)
}

// request runs one scheduling request through scheduleTable.
//
// Algorithm:
//  1. Inhibited: remember the request and return
//  2. Look up the step for (request, state)
//  3. Ignore / defer / pipeline per the step
//  4. Compute the wake-up for the mode and arm the timer
func (c *Clock) request(req request, targetUs int64) {
	if c.destroyed {
		return
	}

	if c.inhibitCount > 0 {
		c.deferRequest(req.intent(), targetUs)
		return
	}

	step := scheduleTable[req][c.state]
	switch step.action {
	case actionIgnore:
		return

	case actionDefer:
		c.deferRequest(req.intent(), targetUs)
		return

	case actionArmIfEarlier:
		if targetUs >= c.laterTargetUs {
			return
		}

	case actionPipeline:
		if !c.wantTripleBuffering() {
			c.deferRequest(req.intent(), targetUs)
			return
		}
	}

	if c.state == StateInit && req != requestLater {
		// first frame ever: nothing to predict from
		c.state = step.next
		c.invalidatePredictions()
		c.armAt(c.now.NowUs())
		return
	}

	switch req {
	case requestNow:
		c.state = step.next
		c.computeNow()
	case requestLater:
		c.computeLater(step.next, targetUs)
	default:
		c.state = step.next
		c.computeNormal()
	}
}

// deferRequest records a request to replay once the clock can honour it.
// A sooner request always wins over a later one.
func (c *Clock) deferRequest(in intent, targetUs int64) {
	switch in {
	case intentNow:
		c.pendingRescheduleNow = true
		c.pendingLaterUs = 0
	case intentNormal:
		c.pendingLaterUs = 0
	case intentLater:
		switch {
		case !c.pendingReschedule:
			c.pendingLaterUs = targetUs
		case c.pendingLaterUs != 0 && targetUs < c.pendingLaterUs:
			c.pendingLaterUs = targetUs
		}
	}
	c.pendingReschedule = true
}

// armAt arms the timer (or pokes the driver when passive).
func (c *Clock) armAt(updateTimeUs int64) {
	c.nextUpdateTimeUs = updateTimeUs
	if c.mode == ModePassive {
		if c.driver != nil {
			c.driver.ScheduleUpdate()
		}
		return
	}
	c.arm(updateTimeUs)
}

func (c *Clock) apply(r schedule.Result) {
	c.nextPresentationTimeUs = r.PresentationTimeUs
	c.nextFrameDeadlineUs = r.FrameDeadlineUs
	c.armAt(r.UpdateTimeUs)

	c.logger.Debug("frame-clock: scheduled",
		"state", c.state.String(),
		"mode", c.mode.String(),
		"update_time_us", r.UpdateTimeUs,
		"presentation_time_us", r.PresentationTimeUs,
		"frame_deadline_us", r.FrameDeadlineUs,
	)
}

func (c *Clock) computeNormal() {
	in := c.scheduleInput()

	switch c.mode {
	case ModePassive:
		c.armAt(in.NowUs)
	case ModeVariable:
		if len(c.timelines) > 0 {
			c.apply(schedule.Variable(in))
			return
		}
		timeoutUs := schedule.TimeoutIntervalUs(in.NowUs, c.lastFrameSyncUs,
			c.refreshIntervalUs, c.maximumRefreshIntervalUs)
		c.invalidatePredictions()
		c.armAt(schedule.VariableTimeout(in, timeoutUs))
	default:
		c.apply(c.fixed(in))
	}
}

func (c *Clock) computeNow() {
	in := c.scheduleInput()

	switch c.mode {
	case ModePassive:
		c.armAt(in.NowUs)
	case ModeVariable:
		c.apply(schedule.Variable(in))
	default:
		// a forced update has no smooth projection
		c.invalidatePredictions()
		c.armAt(in.NowUs)
	}
}

// computeLater enters next targeting targetUs, unless the natural schedule
// already presents late enough, in which case a normal update is scheduled.
func (c *Clock) computeLater(next State, targetUs int64) {
	if c.mode == ModePassive {
		c.state = next
		c.laterTargetUs = targetUs
		c.armAt(c.now.NowUs())
		return
	}

	// the later frame sits behind whatever is already in flight
	in := c.scheduleInputFor(next)

	var (
		r  schedule.Result
		ok bool
	)
	if c.mode == ModeVariable {
		r, ok = schedule.VariableLater(in, schedule.Variable(in), targetUs)
	} else {
		r, ok = schedule.FixedLater(in, c.fixed(in), targetUs)
	}

	if !ok {
		// the natural schedule already presents late enough
		step := scheduleTable[requestNormal][c.state]
		if step.action == actionIgnore {
			return
		}
		c.laterTargetUs = 0
		c.state = step.next
		c.computeNormal()
		return
	}

	c.state = next
	c.laterTargetUs = targetUs
	c.apply(r)
}

func (c *Clock) fixed(in schedule.Input) schedule.Result {
	r := schedule.Fixed(in)
	if in.FramesAhead >= 3 {
		c.warn(WarnDispatch, "scheduling a third frame ahead of the last presentation",
			"frame_count", c.frameCount)
	}
	return r
}

// framesAhead is the number of refresh intervals between the last
// presentation and a frame scheduled in state s.
func framesAhead(s State) int {
	switch s {
	case StateDispatchedOneAndScheduled,
		StateDispatchedOneAndScheduledNow,
		StateDispatchedOneAndScheduledLater:
		return 2
	case StateDispatchedTwo:
		return 3
	default:
		return 1
	}
}

func (c *Clock) scheduleInput() schedule.Input {
	return c.scheduleInputFor(c.state)
}

// scheduleInputFor builds the calculator input as if the clock were in s.
func (c *Clock) scheduleInputFor(s State) schedule.Input {
	in := schedule.Input{
		NowUs:             c.now.NowUs(),
		RefreshIntervalUs: c.refreshIntervalUs,
		VblankDurationUs:  c.vblankDurationUs,
		PreviousTargetUs:  c.nextPresentationTimeUs,
		FramesAhead:       framesAhead(s),
	}
	in.MaxRenderTimeUs, in.HasMaxRenderTime = c.estimator.MaxRenderTimeUs(c.refreshIntervalUs)

	if f := c.pool.Get(c.prevPresentation); f != nil {
		in.LastPresentationUs = f.PresentationTimeUs
		in.LastPresentationVsync = f.PresentationFlags.Has(presentation.FlagVsync)
	}
	if f := c.pool.Get(c.prevDispatch); f != nil {
		in.LastDispatchUs = f.DispatchTimeUs
		in.LastDispatchLatenessUs = f.DispatchLatenessUs
	}
	return in
}

func (c *Clock) wantTripleBuffering() bool {
	in := schedule.Input{RefreshIntervalUs: c.refreshIntervalUs}
	in.MaxRenderTimeUs, in.HasMaxRenderTime = c.estimator.MaxRenderTimeUs(c.refreshIntervalUs)
	return schedule.WantTripleBuffering(c.mode == ModePassive, c.debug.DisableTripleBuffering, in)
}

// maybeReschedule replays pending requests, keeps animations running and
// serves deferred wake-ups.
func (c *Clock) maybeReschedule() {
	if c.destroyed || c.inhibitCount > 0 {
		return
	}

	referenceUs, ok := c.NextPresentationTimeUs()
	if !ok {
		referenceUs = c.now.NowUs()
	}

	if c.pendingReschedule || len(c.timelines) > 0 {
		now, laterUs := c.pendingRescheduleNow, c.pendingLaterUs
		c.pendingReschedule = false
		c.pendingRescheduleNow = false
		c.pendingLaterUs = 0
		c.deferred.PurgeExpired(referenceUs)

		switch {
		case now:
			c.ScheduleUpdateNow()
		case laterUs != 0 && len(c.timelines) == 0:
			c.ScheduleUpdateLater(laterUs)
		default:
			c.ScheduleUpdate()
		}
		return
	}

	purged := c.deferred.PurgeExpired(referenceUs)
	if targetUs, ok := c.deferred.PeekEarliest(); ok {
		c.ScheduleUpdateLater(targetUs)
	} else if purged {
		c.ScheduleUpdate()
	}
}

// youngestInFlight returns the role of the most recently dispatched frame
// still awaiting completion.
func (c *Clock) youngestInFlight() *framepool.Handle {
	if c.nextNextPresentation.Valid() {
		return &c.nextNextPresentation
	}
	return &c.nextPresentation
}
