package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// SnapshotFunc returns the value to publish. It is called once per interval.
type SnapshotFunc func(ctx context.Context) (any, error)

// StatsTopic builds the stats topic of an instance.
func StatsTopic(prefix, instanceID string) string {
	return fmt.Sprintf("%s/%s/stats", prefix, instanceID)
}

// Emitter periodically publishes a JSON snapshot.
type Emitter struct {
	pub      Publisher
	topic    string
	qos      byte
	interval time.Duration
	snapshot SnapshotFunc

	published atomic.Uint64
	failed    atomic.Uint64
}

// EmitterStats contains emitter counters
type EmitterStats struct {
	Topic     string `json:"topic"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

// NewEmitter creates an emitter publishing snapshot to topic every interval.
func NewEmitter(pub Publisher, topic string, qos byte, interval time.Duration, snapshot SnapshotFunc) *Emitter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Emitter{
		pub:      pub,
		topic:    topic,
		qos:      qos,
		interval: interval,
		snapshot: snapshot,
	}
}

// Run publishes until ctx is done. Publish failures are counted and logged,
// never returned: the broker may come back.
func (e *Emitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	slog.Info("telemetry: emitter started", "topic", e.topic, "interval", e.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("telemetry: emitter stopped",
				"published", e.published.Load(),
				"failed", e.failed.Load(),
			)
			return nil
		case <-ticker.C:
			if err := e.Emit(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("telemetry: publish failed", "topic", e.topic, "error", err)
			}
		}
	}
}

// Emit publishes one snapshot.
func (e *Emitter) Emit(ctx context.Context) error {
	v, err := e.snapshot(ctx)
	if err != nil {
		e.failed.Add(1)
		return fmt.Errorf("failed to take snapshot: %w", err)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		e.failed.Add(1)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := e.pub.Publish(e.topic, payload, e.qos); err != nil {
		e.failed.Add(1)
		return err
	}

	e.published.Add(1)
	slog.Debug("telemetry: published", "topic", e.topic, "size", len(payload))
	return nil
}

// Stats returns emitter counters.
func (e *Emitter) Stats() EmitterStats {
	return EmitterStats{
		Topic:     e.topic,
		Published: e.published.Load(),
		Failed:    e.failed.Load(),
	}
}
