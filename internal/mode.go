package internal

// SetMode switches between fixed and variable pacing. Passive pacing is
// entered through SetPassive only.
func (c *Clock) SetMode(mode Mode) {
	if mode == ModePassive {
		c.warn(WarnMode, "passive mode requires a driver, use SetPassive", "mode", mode.String())
		return
	}
	if mode != ModeFixed && mode != ModeVariable {
		c.warn(WarnMode, "unknown mode", "mode", int(mode))
		return
	}
	if c.mode == mode {
		return
	}

	c.logger.Info("frame-clock: mode changed",
		"from", c.mode.String(),
		"to", mode.String(),
	)

	c.mode = mode
	c.driver = nil
	c.collapseSchedule()
	c.maybeReschedule()
}

// SetPassive hands pacing to driver. The timer is no longer used; the
// driver calls Dispatch after the clock asks it to schedule an update.
func (c *Clock) SetPassive(driver Driver) {
	if driver == nil {
		c.warn(WarnMode, "passive mode without a driver")
		return
	}

	c.logger.Info("frame-clock: mode changed",
		"from", c.mode.String(),
		"to", ModePassive.String(),
	)

	c.collapseSchedule()
	c.mode = ModePassive
	c.driver = driver
	c.invalidatePredictions()
	c.maybeReschedule()
}

// SetRefreshRate changes the refresh rate (Hz).
func (c *Clock) SetRefreshRate(rateHz float64) {
	if rateHz <= 1 {
		c.warn(WarnMode, "invalid refresh rate", "refresh_rate", rateHz)
		return
	}
	c.applyRefreshRate(rateHz)
}

// SetDeadlineEvasion changes the safety margin added to measured update durations.
func (c *Clock) SetDeadlineEvasion(us int64) {
	c.estimator.SetDeadlineEvasion(us)
}

// SetDebugFlags replaces the debug switches of the clock.
func (c *Clock) SetDebugFlags(flags DebugFlags) {
	c.debug = flags
	c.estimator.SetDebugFlags(flags.DisableTripleBuffering, flags.DisableDynamicMaxRenderTime)
}

// DebugFlags returns the debug switches of the clock.
func (c *Clock) DebugFlags() DebugFlags { return c.debug }
