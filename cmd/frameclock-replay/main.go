package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/estimator"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/trace"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	tracePath := flag.String("trace", "", "Trace file to replay (required)")
	configPath := flag.String("config", "", "Replay with the clock settings of this config file")
	evasion := flag.Int64("deadline-evasion", -1, "Override deadline evasion (µs)")
	vblank := flag.Int64("vblank-duration", -1, "Override vblank duration (µs)")
	constant := flag.Int64("render-time-constant", -1, "Override render time constant (µs)")
	every := flag.Int("every", 60, "Print one line every N frames (0 = summary only)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("frameclock-replay %s\n", version)
		os.Exit(0)
	}

	// Validate required flags
	if *tracePath == "" {
		fmt.Fprintf(os.Stderr, "Error: --trace flag is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  frameclock-replay --trace frameclock.trace\n")
		fmt.Fprintf(os.Stderr, "  frameclock-replay --trace frameclock.trace --deadline-evasion 500\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Estimator settings: config file first, then flag overrides
	estCfg := estimator.Config{RenderTimeConstantUs: internal.DefaultRenderTimeConstantUs}
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		estCfg = estimator.Config{
			DeadlineEvasionUs:      cfg.Clock.DeadlineEvasionUs,
			VblankDurationUs:       cfg.Clock.VblankDurationUs,
			RenderTimeConstantUs:   cfg.Clock.RenderTimeConstantUs,
			DisableTripleBuffering: cfg.Clock.DisableTripleBuffering,
			DisableDynamic:         cfg.Clock.DisableDynamicMaxRenderTime,
		}
	}
	if *evasion >= 0 {
		estCfg.DeadlineEvasionUs = *evasion
	}
	if *vblank >= 0 {
		estCfg.VblankDurationUs = *vblank
	}
	if *constant >= 0 {
		estCfg.RenderTimeConstantUs = *constant
	}

	// Read trace
	f, err := os.Open(*tracePath)
	if err != nil {
		log.Fatalf("Failed to open trace: %v", err)
	}
	defer f.Close()

	r, err := trace.NewReader(f)
	if err != nil {
		log.Fatalf("Failed to read trace: %v", err)
	}
	reports, err := r.ReadAll()
	if err != nil {
		// keep what was read before the corruption
		slog.Warn("trace truncated", "error", err, "frames", len(reports))
	}

	hdr := r.Header()
	fmt.Printf("Session:       %s\n", hdr.SessionID)
	fmt.Printf("Instance:      %s\n", hdr.InstanceID)
	fmt.Printf("Started:       %s\n", hdr.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Mode:          %s @ %.2f Hz\n", hdr.Mode, hdr.RefreshRate)
	fmt.Printf("Frames:        %d\n", len(reports))
	fmt.Printf("Estimator:     evasion=%dµs vblank=%dµs constant=%dµs\n",
		estCfg.DeadlineEvasionUs, estCfg.VblankDurationUs, estCfg.RenderTimeConstantUs)
	fmt.Printf("\n")

	res := trace.Replay(reports, estCfg)

	if *every > 0 {
		fmt.Printf("%10s %14s %12s %12s %12s %12s\n",
			"frame", "presented_us", "short_us", "long_us", "max_render", "recorded")
		for i, p := range res.Points {
			if i%*every != 0 && i != len(res.Points)-1 {
				continue
			}
			maxRender := "-"
			if p.HasMaxRenderTime {
				maxRender = fmt.Sprint(p.MaxRenderTimeUs)
			}
			fmt.Printf("%10d %14d %12d %12d %12s %12d\n",
				p.FrameCount, p.PresentationTimeUs, p.ShorttermMaxUs, p.LongtermMaxUs, maxRender, p.Recorded)
		}
		fmt.Printf("\n")
	}

	var missed int64
	for _, rep := range reports {
		missed += rep.MissedFrames
	}

	c := res.Cadence
	fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
	fmt.Printf("│ Replay Summary\n")
	fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
	fmt.Printf("│ Presentations:      %6d\n", c.Presentations)
	fmt.Printf("│ Span:               %6.2f s\n", float64(c.SpanUs)/1e6)
	fmt.Printf("│ Rate Mean:          %6.2f Hz\n", c.RateMean)
	fmt.Printf("│ Rate StdDev:        %6.2f Hz\n", c.RateStdDev)
	fmt.Printf("│ Rate Range:         %6.1f - %.1f Hz\n", c.RateMin, c.RateMax)
	fmt.Printf("│ Jitter Mean:        %6.0f µs\n", c.JitterMeanUs)
	fmt.Printf("│ Jitter Max:         %6.0f µs\n", c.JitterMaxUs)
	fmt.Printf("│ Stable:             %6v\n", c.IsStable)
	fmt.Printf("│ Missed Frames:      %6d\n", missed)
	fmt.Printf("│ Diverged Frames:    %6d\n", res.Diverged)
	fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
}
