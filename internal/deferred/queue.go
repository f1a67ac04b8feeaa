// Package deferred keeps the future wake-up times requested by callers that
// want a frame no earlier than some point in time.
package deferred

import "sort"

// Queue is ordered by target time; equal times keep insertion order.
// The zero value is an empty queue.
type Queue struct {
	timesUs []int64
}

// Add inserts targetUs after every entry that is not later than it.
func (q *Queue) Add(targetUs int64) {
	i := sort.Search(len(q.timesUs), func(i int) bool {
		return q.timesUs[i] > targetUs
	})
	q.timesUs = append(q.timesUs, 0)
	copy(q.timesUs[i+1:], q.timesUs[i:])
	q.timesUs[i] = targetUs
}

// PurgeExpired drops every entry at or before referenceUs and reports
// whether anything was removed.
func (q *Queue) PurgeExpired(referenceUs int64) bool {
	n := sort.Search(len(q.timesUs), func(i int) bool {
		return q.timesUs[i] > referenceUs
	})
	if n == 0 {
		return false
	}
	q.timesUs = append(q.timesUs[:0], q.timesUs[n:]...)
	return true
}

// PeekEarliest returns the smallest remaining target time.
func (q *Queue) PeekEarliest() (int64, bool) {
	if len(q.timesUs) == 0 {
		return 0, false
	}
	return q.timesUs[0], true
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	return len(q.timesUs)
}

// Clear drops every entry.
func (q *Queue) Clear() {
	q.timesUs = q.timesUs[:0]
}
