package internal

import (
	"slices"
)

// Dispatch produces a frame. The owner of the timer calls it when the
// armed time is reached; passive drivers call it directly.
//
// Algorithm:
//  1. Compute dispatch lateness against the scheduled update time
//  2. Rotate the frame roles and allocate the new frame
//  3. Disarm the timer, advance the state, count the frame
//  4. BeforeFrame → advance timelines → Frame
//  5. Handle the result (pending presentation, idle, ignored)
//
// Returns false when nothing was scheduled (a caller bug, logged and counted).
func (c *Clock) Dispatch(nowUs int64) bool {
	if c.destroyed {
		return false
	}

	next := afterDispatch[c.state]
	if next == stateNone {
		c.warn(WarnDispatch, "dispatch without a scheduled update", "now_us", nowUs)
		return false
	}

	latenessUs := nowUs - c.nextUpdateTimeUs
	if latenessUs < 0 || latenessUs >= c.refreshIntervalUs/4 {
		latenessUs = 0
	}

	c.pool.Clear(&c.prevDispatch)
	h := c.pool.Acquire()
	c.pool.Assign(&c.prevDispatch, h)
	if c.nextPresentation.Valid() {
		c.pool.Assign(&c.nextNextPresentation, h)
	} else {
		c.pool.Assign(&c.nextPresentation, h)
	}
	c.pool.Release(h)

	record := c.pool.Get(h)
	record.FrameCount = c.frameCount
	record.DispatchTimeUs = nowUs
	record.DispatchLatenessUs = latenessUs
	record.TargetPresentationTimeUs = c.nextPresentationTimeUs

	if c.state == StateScheduledLater || c.state == StateDispatchedOneAndScheduledLater {
		// re-evaluate normally once this frame completes
		c.pendingReschedule = true
		c.laterTargetUs = 0
	}

	c.disarm()
	c.state = next
	c.frameCount++

	frame := c.newFrame()
	frame.FrameCount = record.FrameCount
	frame.DispatchTimeUs = nowUs
	frame.DispatchLatenessUs = latenessUs
	frame.TargetPresentationTimeUs, frame.HasTargetPresentationTime = c.NextPresentationTimeUs()
	frame.FrameDeadlineUs, frame.HasFrameDeadline = c.NextFrameDeadlineUs()

	c.listener.BeforeFrame(frame)

	timelineTimeUs := nowUs
	if frame.HasTargetPresentationTime {
		timelineTimeUs = frame.TargetPresentationTimeUs
	}
	c.advanceTimelines(timelineTimeUs)

	result := c.listener.Frame(frame)

	c.logger.Debug("frame-clock: dispatched",
		"frame_count", frame.FrameCount,
		"state", c.state.String(),
		"lateness_us", latenessUs,
		"result", result.String(),
	)

	switch result {
	case FrameResultPendingPresented:
		c.lastFrameSyncUs = nowUs
	case FrameResultIdle:
		c.NotifyReady()
	case FrameResultIgnored:
		c.abortFrame()
	}
	return true
}

func (c *Clock) newFrame() *Frame {
	if f, ok := c.listener.(FrameFactory); ok {
		if frame := f.NewFrame(); frame != nil {
			return frame
		}
	}
	return &Frame{}
}

// abortFrame undoes a dispatch whose frame was never submitted.
func (c *Clock) abortFrame() {
	next := afterCompletion[c.state]
	if next == stateNone {
		c.warn(WarnPool, "ignored frame with nothing in flight")
		return
	}

	c.pool.Clear(c.youngestInFlight())
	c.state = next
	c.maybeReschedule()
}

func (c *Clock) advanceTimelines(timeUs int64) {
	// timelines may remove themselves while advancing
	for _, t := range slices.Clone(c.timelines) {
		t.Advance(timeUs)
	}
}

// AddTimeline starts driving t every dispatch. The first timeline
// schedules an update.
func (c *Clock) AddTimeline(t Timeline) {
	if slices.Contains(c.timelines, t) {
		return
	}
	c.timelines = append(c.timelines, t)

	if len(c.timelines) == 1 {
		c.ScheduleUpdate()
	}
}

// RemoveTimeline stops driving t.
func (c *Clock) RemoveTimeline(t Timeline) {
	if i := slices.Index(c.timelines, t); i >= 0 {
		c.timelines = slices.Delete(c.timelines, i, i+1)
	}
}

// AddFutureTime asks for a frame no earlier than targetUs.
func (c *Clock) AddFutureTime(targetUs int64) {
	c.deferred.Add(targetUs)
	c.maybeReschedule()
}
