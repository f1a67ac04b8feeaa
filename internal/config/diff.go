package config

import "fmt"

// Change is one modified clock setting.
type Change struct {
	Field string
	Old   string
	New   string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s → %s", c.Field, c.Old, c.New)
}

// Diff lists the clock settings that differ between two validated configs.
// Only the clock section can be applied without a restart.
func Diff(prev, next *Config) []Change {
	var changes []Change
	add := func(field string, a, b any) {
		if a != b {
			changes = append(changes, Change{
				Field: field,
				Old:   fmt.Sprint(a),
				New:   fmt.Sprint(b),
			})
		}
	}

	o, n := prev.Clock, next.Clock
	add("clock.refresh_rate", o.RefreshRate, n.RefreshRate)
	add("clock.minimum_refresh_rate", o.MinimumRefreshRate, n.MinimumRefreshRate)
	add("clock.mode", o.Mode, n.Mode)
	add("clock.vblank_duration_us", o.VblankDurationUs, n.VblankDurationUs)
	add("clock.deadline_evasion_us", o.DeadlineEvasionUs, n.DeadlineEvasionUs)
	add("clock.render_time_constant_us", o.RenderTimeConstantUs, n.RenderTimeConstantUs)
	add("clock.disable_triple_buffering", o.DisableTripleBuffering, n.DisableTripleBuffering)
	add("clock.disable_dynamic_max_render_time", o.DisableDynamicMaxRenderTime, n.DisableDynamicMaxRenderTime)

	return changes
}

// Has reports whether field is among changes.
func Has(changes []Change, field string) bool {
	for _, c := range changes {
		if c.Field == field {
			return true
		}
	}
	return false
}
