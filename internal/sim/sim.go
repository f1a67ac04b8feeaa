package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/loop"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/telemetry"
	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/trace"
)

// reportBuffer is the channel capacity of each frame report subscriber.
const reportBuffer = 256

// Simulation owns a loop, a clock and a display.
//
// Goroutine topology (Run):
//   - loop: runs the clock, the display and every timer callback
//   - emitter: publishes stats (optional)
//   - reload: applies configuration updates (optional)
//   - sinks: trace writer and frame feed, fed by clock subscriptions (optional)
type Simulation struct {
	cfg     *config.Config
	logger  *slog.Logger
	loop    *loop.Loop
	clock   *internal.Clock
	display *Display
	anim    *Animation

	publisher telemetry.Publisher
	emitter   *telemetry.Emitter
	feed      *telemetry.Feed
	trace     *trace.Writer
	watcher   *config.Watcher

	// report subscriptions, closed once the clock is destroyed
	sinks []chan internal.FrameReport
}

// Option configures optional collaborators.
type Option func(*Simulation)

// WithPublisher enables telemetry through p.
func WithPublisher(p telemetry.Publisher) Option {
	return func(s *Simulation) { s.publisher = p }
}

// WithTrace records every presented frame to w.
func WithTrace(w *trace.Writer) Option {
	return func(s *Simulation) { s.trace = w }
}

// WithWatcher applies configuration reloads delivered by w.
func WithWatcher(w *config.Watcher) Option {
	return func(s *Simulation) { s.watcher = w }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// New builds a simulation from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		cfg:    cfg,
		logger: slog.Default(),
		loop:   loop.New(0),
		anim:   &Animation{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.display = NewDisplay(s.loop, DisplayOptions{
		RenderCostUs:   cfg.Simulator.RenderCostUs,
		RenderJitterUs: cfg.Simulator.RenderJitterUs,
		CPUCostUs:      cfg.Simulator.CPUCostUs,
		HWClock:        cfg.Simulator.HWClock,
		Seed:           time.Now().UnixNano(),
	})

	clockCfg, err := cfg.Clock.ToClock(s.logger)
	if err != nil {
		return nil, err
	}
	clock, err := internal.NewClock(clockCfg, s.loop, s.loop, s.display)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame clock: %w", err)
	}
	s.clock = clock
	s.display.Attach(clock)
	s.loop.OnDispatch(func(nowUs int64) { clock.Dispatch(nowUs) })

	if s.publisher != nil {
		topic := telemetry.StatsTopic(cfg.Telemetry.TopicPrefix, cfg.InstanceID)
		interval := time.Duration(cfg.Telemetry.IntervalMs) * time.Millisecond
		s.emitter = telemetry.NewEmitter(s.publisher, topic, cfg.Telemetry.QoS, interval, s.snapshot)

		if cfg.Telemetry.Frames {
			s.feed = telemetry.NewFeed(s.publisher,
				telemetry.FramesTopic(cfg.Telemetry.TopicPrefix, cfg.InstanceID), cfg.Telemetry.QoS)
		}
	}

	return s, nil
}

// subscribe opens a report subscription on the clock.
func (s *Simulation) subscribe(id string) (<-chan internal.FrameReport, error) {
	ch := make(chan internal.FrameReport, reportBuffer)
	if err := s.clock.Subscribe(id, ch); err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", id, err)
	}
	s.sinks = append(s.sinks, ch)
	return ch, nil
}

// startSinks runs the report consumers. The returned wait closes their
// channels and blocks until every buffered report was handled; call it
// once the clock no longer publishes.
func (s *Simulation) startSinks() (wait func(), err error) {
	var wg sync.WaitGroup
	wait = func() {
		for _, ch := range s.sinks {
			close(ch)
		}
		s.sinks = nil
		wg.Wait()
	}

	if s.trace != nil {
		reports, err := s.subscribe("trace")
		if err != nil {
			return wait, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.trace.Consume(reports)
		}()
	}
	if s.feed != nil {
		reports, err := s.subscribe("telemetry")
		if err != nil {
			return wait, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.feed.Run(reports)
		}()
	}
	return wait, nil
}

// Clock returns the simulated clock. Only touch it from the loop (see Call).
func (s *Simulation) Clock() *internal.Clock { return s.clock }

// Display returns the simulated display.
func (s *Simulation) Display() *Display { return s.display }

// Animation returns the timeline attached when the simulator animates.
func (s *Simulation) Animation() *Animation { return s.anim }

// Call runs fn on the loop with the clock.
func (s *Simulation) Call(ctx context.Context, fn func(c *internal.Clock)) error {
	return s.loop.Call(ctx, func() { fn(s.clock) })
}

// Run starts the simulation and blocks until ctx is done or a component fails.
func (s *Simulation) Run(ctx context.Context) error {
	// the loop outlives ctx so that the final snapshot can still run on it
	if err := s.loop.Start(context.Background()); err != nil {
		return err
	}
	defer s.loop.Stop()

	if s.publisher != nil {
		if err := s.publisher.Connect(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer s.publisher.Disconnect()
	}

	waitSinks, err := s.startSinks()
	if err != nil {
		s.shutdown()
		waitSinks()
		return err
	}

	if err := s.start(); err != nil {
		s.shutdown()
		waitSinks()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.emitter != nil {
		g.Go(func() error { return s.emitter.Run(gctx) })
	}
	if s.watcher != nil {
		g.Go(func() error { return s.reloadLoop(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()

	s.shutdown()
	waitSinks()
	return err
}

// shutdown logs the final snapshot and destroys the clock on the loop.
func (s *Simulation) shutdown() {
	s.loop.Call(context.Background(), func() {
		st := s.clock.Stats()
		s.logger.Info("sim: finished",
			"frames", st.FrameCount,
			"missed_frames", st.MissedFrames,
			"max_render_time_us", st.MaxRenderTimeUs,
			"reports_dropped", st.Reports.TotalDropped,
			"warnings", st.Warnings,
		)
		s.display.Stop()
		s.clock.Destroy()
	})
}

// start schedules the first work on the loop.
func (s *Simulation) start() error {
	sim := s.cfg.Simulator
	return s.loop.Post(func() {
		startUs := s.loop.NowUs()
		s.logger.Info("sim: started",
			"mode", s.clock.Mode().String(),
			"refresh_rate", s.clock.RefreshRate(),
			"render_cost_us", sim.RenderCostUs,
			"animate", sim.Animate,
			"wake_times", len(sim.WakeTimesMs),
		)

		if sim.Animate {
			s.clock.AddTimeline(s.anim)
		} else {
			s.clock.ScheduleUpdate()
		}
		for _, ms := range sim.WakeTimesMs {
			s.clock.AddFutureTime(startUs + ms*1000)
		}
	})
}

func (s *Simulation) reloadLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-s.watcher.Updates():
			if !ok {
				return nil
			}
			if err := s.Apply(ctx, cfg); err != nil {
				s.logger.Warn("sim: config update failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return nil
			}
			s.logger.Warn("sim: config reload failed", "error", err)
		}
	}
}

// Apply applies the clock changes of next. Settings the clock cannot change
// at runtime are logged and ignored.
func (s *Simulation) Apply(ctx context.Context, next *config.Config) error {
	changes := config.Diff(s.cfg, next)
	if len(changes) == 0 {
		s.logger.Debug("sim: config reloaded, clock unchanged")
		return nil
	}

	mode, err := internal.ParseMode(next.Clock.Mode)
	if err != nil {
		return fmt.Errorf("clock.mode: %w", err)
	}

	err = s.Call(ctx, func(c *internal.Clock) {
		if config.Has(changes, "clock.refresh_rate") {
			c.SetRefreshRate(next.Clock.RefreshRate)
		}
		if config.Has(changes, "clock.deadline_evasion_us") {
			c.SetDeadlineEvasion(next.Clock.DeadlineEvasionUs)
		}
		if config.Has(changes, "clock.disable_triple_buffering") ||
			config.Has(changes, "clock.disable_dynamic_max_render_time") {
			c.SetDebugFlags(next.Clock.DebugFlags())
		}
		if config.Has(changes, "clock.mode") {
			c.SetMode(mode)
		}
	})
	if err != nil {
		return err
	}

	for _, change := range changes {
		switch change.Field {
		case "clock.minimum_refresh_rate", "clock.vblank_duration_us", "clock.render_time_constant_us":
			s.logger.Warn("sim: change requires restart", "change", change.String())
		default:
			s.logger.Info("sim: config changed", "change", change.String())
		}
	}

	s.cfg.Clock = next.Clock
	return nil
}

// Snapshot is what telemetry publishes.
type Snapshot struct {
	InstanceID string                  `json:"instance_id"`
	Clock      internal.Stats          `json:"clock"`
	Display    DisplayStats            `json:"display"`
	Animation  int64                   `json:"animation_advances"`
	Telemetry  *telemetry.EmitterStats `json:"telemetry,omitempty"`
	FrameFeed  *telemetry.EmitterStats `json:"frame_feed,omitempty"`
}

// Snapshot collects the current stats from the loop.
func (s *Simulation) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{InstanceID: s.cfg.InstanceID}
	err := s.loop.Call(ctx, func() { snap.Clock = s.clock.Stats() })
	if err != nil {
		return snap, err
	}
	snap.Display = s.display.Stats()
	snap.Animation = s.anim.Advances()
	if s.emitter != nil {
		es := s.emitter.Stats()
		snap.Telemetry = &es
	}
	if s.feed != nil {
		fs := s.feed.Stats()
		snap.FrameFeed = &fs
	}
	return snap, nil
}

func (s *Simulation) snapshot(ctx context.Context) (any, error) {
	return s.Snapshot(ctx)
}
