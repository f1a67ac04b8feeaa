package internal

// Inhibit suspends scheduling. Calls nest; the first one cancels any
// scheduled update and remembers it for Uninhibit.
func (c *Clock) Inhibit() {
	c.inhibitCount++
	if c.inhibitCount == 1 {
		c.collapseSchedule()
	}
}

// Uninhibit undoes one Inhibit. The last one replays what was cancelled.
func (c *Clock) Uninhibit() {
	if c.inhibitCount == 0 {
		c.warn(WarnInhibit, "uninhibit without matching inhibit")
		return
	}

	c.inhibitCount--
	if c.inhibitCount == 0 {
		c.maybeReschedule()
	}
}

// InhibitCount returns the current inhibition depth.
func (c *Clock) InhibitCount() int { return c.inhibitCount }

// collapseSchedule drops a scheduled update, keeping the frames in flight,
// records a pending reschedule for replay and disarms the timer.
func (c *Clock) collapseSchedule() {
	step := collapse[c.state]

	switch step.replay {
	case intentNow:
		c.pendingReschedule = true
		c.pendingRescheduleNow = true
		c.pendingLaterUs = 0
	case intentNormal:
		c.pendingReschedule = true
		c.pendingLaterUs = 0
	case intentLater:
		if !c.pendingRescheduleNow {
			c.pendingLaterUs = c.laterTargetUs
		}
		c.pendingReschedule = true
	}

	if step.replay != intentNone {
		c.logger.Debug("frame-clock: schedule cancelled",
			"from", c.state.String(),
			"to", step.to.String(),
		)
	}
	c.state = step.to
	c.disarm()
}
