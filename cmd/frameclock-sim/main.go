package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/sim"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/telemetry"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/trace"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Configuration file (.yaml, .yml or .toml)")
	watch := flag.Bool("watch", false, "Reload clock settings when the config file changes")
	duration := flag.Duration("duration", 0, "Run time (0 = simulator.duration_s, or until interrupted)")
	refreshRate := flag.Float64("refresh-rate", 0, "Override clock.refresh_rate (Hz)")
	mode := flag.String("mode", "", "Override clock.mode: fixed, variable")
	animate := flag.Bool("animate", false, "Attach an animation timeline (continuous frames)")
	tracePath := flag.String("trace", "", "Record presented frames to this trace file")
	profileMode := flag.String("profile", "", "Profile the run: cpu, mem, mutex, block")
	statsInterval := flag.Duration("stats-interval", 5*time.Second, "Interval between stats reports")
	jsonLogs := flag.Bool("json", false, "Log as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("frameclock-sim %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if *jsonLogs {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *refreshRate != 0 {
		cfg.Clock.RefreshRate = *refreshRate
	}
	if *mode != "" {
		cfg.Clock.Mode = *mode
	}
	if *animate {
		cfg.Simulator.Animate = true
	}
	if *tracePath != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Path = *tracePath
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *watch && *configPath == "" {
		log.Fatalf("--watch requires --config")
	}

	// Profiling
	if p := profileOption(*profileMode); p != nil {
		defer profile.Start(p, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	// Optional collaborators
	simOpts := []sim.Option{sim.WithLogger(logger)}

	if cfg.Trace.Enabled {
		f, err := os.Create(cfg.Trace.Path)
		if err != nil {
			log.Fatalf("Failed to create trace file: %v", err)
		}
		w, err := trace.NewWriter(f, trace.Header{
			InstanceID:  cfg.InstanceID,
			RefreshRate: cfg.Clock.RefreshRate,
			Mode:        cfg.Clock.Mode,
		})
		if err != nil {
			log.Fatalf("Failed to start trace: %v", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				slog.Error("failed to close trace", "error", err)
			}
			slog.Info("trace written", "path", cfg.Trace.Path, "frames", w.Frames())
		}()
		simOpts = append(simOpts, sim.WithTrace(w))
	}

	if cfg.Telemetry.Enabled {
		pub := telemetry.NewMQTTPublisher(cfg.Telemetry.Broker, cfg.Telemetry.ClientID)
		simOpts = append(simOpts, sim.WithPublisher(pub))
	}

	if *watch {
		w, err := config.NewWatcher(*configPath, 0)
		if err != nil {
			log.Fatalf("Failed to watch config: %v", err)
		}
		defer w.Close()
		simOpts = append(simOpts, sim.WithWatcher(w))
	}

	s, err := sim.New(cfg, simOpts...)
	if err != nil {
		log.Fatalf("Failed to create simulation: %v", err)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║             Frame Clock Simulator %-24s║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Instance:      %s\n", cfg.InstanceID)
	fmt.Printf("  Mode:          %s\n", cfg.Clock.Mode)
	fmt.Printf("  Refresh Rate:  %.2f Hz\n", cfg.Clock.RefreshRate)
	fmt.Printf("  Render Cost:   %d µs (± %d µs)\n", cfg.Simulator.RenderCostUs, cfg.Simulator.RenderJitterUs)
	fmt.Printf("  Animate:       %v\n", cfg.Simulator.Animate)
	fmt.Printf("  Telemetry:     %v\n", cfg.Telemetry.Enabled)
	fmt.Printf("  Trace:         %v\n", cfg.Trace.Enabled)
	fmt.Printf("\n")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runFor := *duration
	if runFor == 0 && cfg.Simulator.DurationS > 0 {
		runFor = time.Duration(cfg.Simulator.DurationS) * time.Second
	}
	if runFor > 0 {
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Printf("\n\nReceived interrupt signal, shutting down gracefully...\n")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Launch stats reporter goroutine
	go reportStats(ctx, s, *statsInterval)

	fmt.Printf("Press Ctrl+C to stop gracefully\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	if err := s.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
	printSummary(s.Display().Stats(), s.Animation().Advances())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func profileOption(mode string) func(*profile.Profile) {
	switch mode {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "mutex":
		return profile.MutexProfile
	case "block":
		return profile.BlockProfile
	case "":
		return nil
	default:
		log.Fatalf("Invalid profile mode: %s (must be cpu, mem, mutex or block)", mode)
		return nil
	}
}

func reportStats(ctx context.Context, s *sim.Simulation, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.Snapshot(ctx)
			if err != nil {
				continue
			}
			st := snap.Clock

			fmt.Printf("\n")
			fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
			fmt.Printf("│ Frame Clock Statistics\n")
			fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
			fmt.Printf("│ State:              %s\n", st.State)
			fmt.Printf("│ Frames:             %6d\n", st.FrameCount)
			fmt.Printf("│ Presented:          %6d\n", snap.Display.Presented)
			fmt.Printf("│ Missed Frames:      %6d\n", st.MissedFrames)
			fmt.Printf("│ Late Frames:        %6d\n", snap.Display.Late)
			fmt.Printf("│ Refresh Interval:   %6d µs\n", st.RefreshIntervalUs)
			if st.HasMaxRenderTime {
				fmt.Printf("│ Max Render Time:    %6d µs\n", st.MaxRenderTimeUs)
			} else {
				fmt.Printf("│ Max Render Time:    (no measurements)\n")
			}
			fmt.Printf("│ Rate Mean:          %6.2f Hz (stable: %v)\n", st.Cadence.RateMean, st.Cadence.IsStable)
			fmt.Printf("│ Jitter Mean:        %6.0f µs\n", st.Cadence.JitterMeanUs)
			if len(st.Reports.Subscribers) > 0 {
				fmt.Printf("│ Reports Dropped:    %6d / %d\n", st.Reports.TotalDropped, st.Reports.TotalPublished)
			}
			if len(st.Warnings) > 0 {
				fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
				for cat, n := range st.Warnings {
					fmt.Printf("│ Warnings (%s): %d\n", cat, n)
				}
			}
			fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
		}
	}
}

func printSummary(ds sim.DisplayStats, advances int64) {
	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("Simulation finished\n")
	fmt.Printf("  Submitted:     %d frames\n", ds.Submitted)
	fmt.Printf("  Presented:     %d frames\n", ds.Presented)
	fmt.Printf("  Late:          %d frames\n", ds.Late)
	fmt.Printf("  Animation:     %d advances\n", advances)
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
}
