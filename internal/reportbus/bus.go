// Package reportbus fans out presented-frame reports to subscribers.
//
// Publish runs on the clock's event loop and never blocks: a subscriber
// whose channel is full misses the report and the drop is counted.
//
// "Drop reports, never stall the loop."
//
// # Basic Usage
//
//	b := reportbus.New()
//	defer b.Close()
//
//	ch := make(chan history.Report, 64)
//	b.Subscribe("trace", ch)
//
//	b.Publish(report)
//
//	stats := b.Stats()
//	fmt.Printf("published=%d sent=%d dropped=%d\n",
//	    stats.TotalPublished, stats.TotalSent, stats.TotalDropped)
//
// # Thread Safety
//
// All methods are safe for concurrent use; Subscribe and Unsubscribe may be
// called from any goroutine while the loop publishes.
package reportbus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("reportbus: subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("reportbus: subscriber id not found")

	// ErrNilChannel is returned when Subscribe is called with a nil channel.
	ErrNilChannel = errors.New("reportbus: nil channel")

	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("reportbus: bus is closed")
)

// Bus distributes reports to subscriber channels with a drop-new policy.
type Bus interface {
	// Subscribe registers ch under id.
	Subscribe(id string, ch chan<- history.Report) error

	// Unsubscribe removes a subscriber. Its channel is not closed.
	Unsubscribe(id string) error

	// Publish offers r to every subscriber without blocking.
	// Publishing to a closed bus is a no-op.
	Publish(r history.Report)

	// Stats returns a snapshot of the counters.
	Stats() Stats

	// Close stops delivery. Subscriber channels are left open: once Close
	// returns no further send happens, so owners may close them.
	Close()
}

// Stats contains global and per-subscriber counters. Each publish counts
// once per current subscriber, as either sent or dropped.
type Stats struct {
	TotalPublished uint64                     `json:"total_published"`
	TotalSent      uint64                     `json:"total_sent"`
	TotalDropped   uint64                     `json:"total_dropped"`
	Subscribers    map[string]SubscriberStats `json:"subscribers,omitempty"`
}

// SubscriberStats tracks one subscriber.
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

type subscriber struct {
	ch      chan<- history.Report
	sent    atomic.Uint64
	dropped atomic.Uint64
}

type bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	totalPublished atomic.Uint64
}

// New creates an empty bus.
func New() Bus {
	return &bus{subscribers: make(map[string]*subscriber)}
}

func (b *bus) Subscribe(id string, ch chan<- history.Report) error {
	if ch == nil {
		return ErrNilChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	b.subscribers[id] = &subscriber{ch: ch}
	return nil
}

func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish sends r to every subscriber:
//   - channel has space: sent, Sent incremented
//   - channel full: dropped, Dropped incremented
func (b *bus) Publish(r history.Report) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.totalPublished.Add(1)

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- r:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
		}
	}
}

func (b *bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{TotalPublished: b.totalPublished.Load()}
	if len(b.subscribers) > 0 {
		s.Subscribers = make(map[string]SubscriberStats, len(b.subscribers))
	}

	for id, sub := range b.subscribers {
		sent, dropped := sub.sent.Load(), sub.dropped.Load()
		s.TotalSent += sent
		s.TotalDropped += dropped
		s.Subscribers[id] = SubscriberStats{Sent: sent, Dropped: dropped}
	}
	return s
}

// Close is idempotent. Stats keeps working afterwards.
func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
