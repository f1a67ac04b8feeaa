// Package config loads frame clock simulator configuration from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported format")

// Format is a configuration file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// Config represents the complete simulator configuration
type Config struct {
	InstanceID string          `yaml:"instance_id" toml:"instance_id"`
	Clock      ClockConfig     `yaml:"clock" toml:"clock"`
	Simulator  SimulatorConfig `yaml:"simulator" toml:"simulator"`
	Telemetry  TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Trace      TraceConfig     `yaml:"trace" toml:"trace"`
}

// ClockConfig contains the frame clock settings. All of them can change at runtime.
type ClockConfig struct {
	RefreshRate          float64 `yaml:"refresh_rate" toml:"refresh_rate"`                 // Hz (default: 60)
	MinimumRefreshRate   float64 `yaml:"minimum_refresh_rate" toml:"minimum_refresh_rate"` // VRR floor in Hz (default: 30)
	Mode                 string  `yaml:"mode" toml:"mode"`                                 // fixed, variable
	VblankDurationUs     int64   `yaml:"vblank_duration_us" toml:"vblank_duration_us"`
	DeadlineEvasionUs    int64   `yaml:"deadline_evasion_us" toml:"deadline_evasion_us"`
	RenderTimeConstantUs int64   `yaml:"render_time_constant_us" toml:"render_time_constant_us"` // default: 1000

	DisableTripleBuffering      bool `yaml:"disable_triple_buffering" toml:"disable_triple_buffering"`
	DisableDynamicMaxRenderTime bool `yaml:"disable_dynamic_max_render_time" toml:"disable_dynamic_max_render_time"`
}

// SimulatorConfig describes the simulated display and client.
type SimulatorConfig struct {
	DurationS      int     `yaml:"duration_s" toml:"duration_s"`             // 0 runs until interrupted
	RenderCostUs   int64   `yaml:"render_cost_us" toml:"render_cost_us"`     // GPU time per frame
	RenderJitterUs int64   `yaml:"render_jitter_us" toml:"render_jitter_us"` // uniform +/- jitter
	CPUCostUs      int64   `yaml:"cpu_cost_us" toml:"cpu_cost_us"`           // CPU time before buffer swap
	Animate        bool    `yaml:"animate" toml:"animate"`                   // attach a timeline
	WakeTimesMs    []int64 `yaml:"wake_times_ms" toml:"wake_times_ms"`       // deferred wakes, relative to start
	HWClock        bool    `yaml:"hw_clock" toml:"hw_clock"`
}

// TelemetryConfig contains MQTT stats publishing settings
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Broker      string `yaml:"broker" toml:"broker"`
	ClientID    string `yaml:"client_id" toml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"` // default: frameclock
	IntervalMs  int    `yaml:"interval_ms" toml:"interval_ms"`   // default: 1000
	QoS         byte   `yaml:"qos" toml:"qos"`
	Frames      bool   `yaml:"frames" toml:"frames"` // also publish every frame report
}

// TraceConfig controls frame timing trace recording.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// FormatOf picks the decoder from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads, parses and validates a configuration file
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode parses and validates a configuration document
func Decode(r io.Reader, format Format) (*Config, error) {
	var cfg Config

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case FormatTOML:
		meta, err := toml.NewDecoder(r).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			slog.Info("config: undecoded keys", "keys", undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ToClock converts the clock section into the frame clock's own configuration.
func (c *ClockConfig) ToClock(logger *slog.Logger) (internal.Config, error) {
	mode, err := internal.ParseMode(c.Mode)
	if err != nil {
		return internal.Config{}, fmt.Errorf("clock.mode: %w", err)
	}
	return internal.Config{
		RefreshRate:          c.RefreshRate,
		MinimumRefreshRate:   c.MinimumRefreshRate,
		Mode:                 mode,
		VblankDurationUs:     c.VblankDurationUs,
		DeadlineEvasionUs:    c.DeadlineEvasionUs,
		RenderTimeConstantUs: c.RenderTimeConstantUs,
		Debug:                c.DebugFlags(),
		Logger:               logger,
	}, nil
}

// DebugFlags returns the debug switches of the clock section.
func (c *ClockConfig) DebugFlags() internal.DebugFlags {
	return internal.DebugFlags{
		DisableTripleBuffering:      c.DisableTripleBuffering,
		DisableDynamicMaxRenderTime: c.DisableDynamicMaxRenderTime,
	}
}
