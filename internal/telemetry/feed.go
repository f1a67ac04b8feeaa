package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
)

// FramesTopic builds the per-frame topic of an instance.
func FramesTopic(prefix, instanceID string) string {
	return fmt.Sprintf("%s/%s/frames", prefix, instanceID)
}

// Feed publishes one JSON message per presented frame.
type Feed struct {
	pub   Publisher
	topic string
	qos   byte

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewFeed creates a feed publishing to topic.
func NewFeed(pub Publisher, topic string, qos byte) *Feed {
	return &Feed{pub: pub, topic: topic, qos: qos}
}

// Run publishes every report received until reports is closed. Failures
// are counted; only the first one of a streak is logged.
func (f *Feed) Run(reports <-chan history.Report) {
	slog.Info("telemetry: frame feed started", "topic", f.topic)

	failing := false
	for r := range reports {
		err := f.Publish(r)
		switch {
		case err != nil && !failing:
			slog.Warn("telemetry: frame publish failed", "topic", f.topic, "frame_count", r.FrameCount, "error", err)
			failing = true
		case err == nil && failing:
			slog.Info("telemetry: frame publish recovered", "topic", f.topic)
			failing = false
		}
	}

	slog.Info("telemetry: frame feed stopped",
		"published", f.published.Load(),
		"failed", f.failed.Load(),
	)
}

// Publish sends one report.
func (f *Feed) Publish(r history.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		f.failed.Add(1)
		return fmt.Errorf("failed to marshal frame report: %w", err)
	}
	if err := f.pub.Publish(f.topic, payload, f.qos); err != nil {
		f.failed.Add(1)
		return err
	}
	f.published.Add(1)
	return nil
}

// Stats returns feed counters.
func (f *Feed) Stats() EmitterStats {
	return EmitterStats{
		Topic:     f.topic,
		Published: f.published.Load(),
		Failed:    f.failed.Load(),
	}
}
