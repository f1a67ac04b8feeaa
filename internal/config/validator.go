package config

import (
	"fmt"
	"regexp"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/schedule"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

const (
	defaultInstanceID   = "frameclock"
	defaultTopicPrefix  = "frameclock"
	defaultIntervalMs   = 1000
	defaultRenderCostUs = 4000
	defaultTracePath    = "frameclock.trace"
)

// Validate checks if the configuration is valid and fills defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		cfg.InstanceID = defaultInstanceID
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if err := validateClock(&cfg.Clock); err != nil {
		return fmt.Errorf("clock: %w", err)
	}

	// Simulator
	if cfg.Simulator.DurationS < 0 {
		return fmt.Errorf("simulator.duration_s must be >= 0")
	}
	if cfg.Simulator.RenderCostUs == 0 {
		cfg.Simulator.RenderCostUs = defaultRenderCostUs
	}
	if cfg.Simulator.RenderCostUs < 0 || cfg.Simulator.RenderJitterUs < 0 || cfg.Simulator.CPUCostUs < 0 {
		return fmt.Errorf("simulator costs must be >= 0")
	}
	for i, ms := range cfg.Simulator.WakeTimesMs {
		if ms <= 0 {
			return fmt.Errorf("simulator.wake_times_ms[%d] must be > 0", i)
		}
	}

	// Telemetry
	if cfg.Telemetry.Enabled && cfg.Telemetry.Broker == "" {
		return fmt.Errorf("telemetry.broker is required when telemetry is enabled")
	}
	if cfg.Telemetry.TopicPrefix == "" {
		cfg.Telemetry.TopicPrefix = defaultTopicPrefix
	}
	if cfg.Telemetry.IntervalMs <= 0 {
		cfg.Telemetry.IntervalMs = defaultIntervalMs
	}
	if cfg.Telemetry.ClientID == "" {
		cfg.Telemetry.ClientID = fmt.Sprintf("frameclock-%s", cfg.InstanceID)
	}
	if cfg.Telemetry.QoS > 2 {
		return fmt.Errorf("telemetry.qos must be 0, 1 or 2")
	}

	// Trace
	if cfg.Trace.Enabled && cfg.Trace.Path == "" {
		cfg.Trace.Path = defaultTracePath
	}

	return nil
}

func validateClock(c *ClockConfig) error {
	if c.RefreshRate == 0 {
		c.RefreshRate = internal.DefaultRefreshRate
	}
	if c.RefreshRate <= 1 {
		return fmt.Errorf("refresh_rate must be > 1, got %v", c.RefreshRate)
	}
	if c.MinimumRefreshRate == 0 {
		c.MinimumRefreshRate = schedule.MinimumRefreshRate
	}
	if c.MinimumRefreshRate <= 0 {
		return fmt.Errorf("minimum_refresh_rate must be > 0, got %v", c.MinimumRefreshRate)
	}

	mode, err := internal.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode == internal.ModePassive {
		return fmt.Errorf("mode %q cannot be configured, passive clocks are driven at runtime", c.Mode)
	}
	c.Mode = mode.String()

	if c.VblankDurationUs < 0 || c.DeadlineEvasionUs < 0 {
		return fmt.Errorf("vblank_duration_us and deadline_evasion_us must be >= 0")
	}
	if c.RenderTimeConstantUs == 0 {
		c.RenderTimeConstantUs = internal.DefaultRenderTimeConstantUs
	}
	if c.RenderTimeConstantUs < 0 {
		return fmt.Errorf("render_time_constant_us must be >= 0")
	}

	return nil
}
