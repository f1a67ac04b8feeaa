package internal

import "sync/atomic"

// WarnCategory classifies calls made in a state where they make no sense.
// They indicate a scheduling bug in the caller; the clock logs and counts
// them, then carries on.
type WarnCategory int

const (
	// WarnDispatch: Dispatch called with nothing scheduled or while already dispatched
	WarnDispatch WarnCategory = iota
	// WarnPresent: NotifyPresented/NotifyReady/RecordFlipTime with no frame in flight
	WarnPresent
	// WarnInhibit: Uninhibit without a matching Inhibit
	WarnInhibit
	// WarnMode: invalid mode switch
	WarnMode
	// WarnPool: frame role bookkeeping inconsistency
	WarnPool

	numWarnCategories
)

// String returns a human-readable string representation of the category
func (w WarnCategory) String() string {
	switch w {
	case WarnDispatch:
		return "dispatch"
	case WarnPresent:
		return "present"
	case WarnInhibit:
		return "inhibit"
	case WarnMode:
		return "mode"
	case WarnPool:
		return "pool"
	default:
		return "unknown"
	}
}

// WarnCounters holds atomic counters per warning category.
// Readable from any goroutine.
type WarnCounters struct {
	counts [numWarnCategories]atomic.Uint64
}

func (w *WarnCounters) inc(cat WarnCategory) {
	if cat >= 0 && cat < numWarnCategories {
		w.counts[cat].Add(1)
	}
}

// Get returns the count of one category.
func (w *WarnCounters) Get(cat WarnCategory) uint64 {
	if cat < 0 || cat >= numWarnCategories {
		return 0
	}
	return w.counts[cat].Load()
}

// Snapshot returns every non-zero counter keyed by category name.
func (w *WarnCounters) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for cat := WarnCategory(0); cat < numWarnCategories; cat++ {
		if n := w.counts[cat].Load(); n > 0 {
			out[cat.String()] = n
		}
	}
	return out
}

// Total returns the sum over all categories.
func (w *WarnCounters) Total() uint64 {
	var total uint64
	for i := range w.counts {
		total += w.counts[i].Load()
	}
	return total
}
