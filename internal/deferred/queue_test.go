package deferred

import (
	"slices"
	"testing"
	"testing/quick"
)

func TestQueueOrdering(t *testing.T) {
	var q Queue
	for _, us := range []int64{300, 100, 200, 100, 50} {
		q.Add(us)
	}

	want := []int64{50, 100, 100, 200, 300}
	if !slices.Equal(q.timesUs, want) {
		t.Errorf("queue = %v, want %v", q.timesUs, want)
	}

	if got, ok := q.PeekEarliest(); !ok || got != 50 {
		t.Errorf("PeekEarliest() = %d, %v, want 50, true", got, ok)
	}
}

func TestPurgeExpired(t *testing.T) {
	tests := []struct {
		name       string
		entries    []int64
		reference  int64
		wantPurged bool
		wantLeft   []int64
	}{
		{"empty", nil, 100, false, nil},
		{"nothing expired", []int64{200, 300}, 100, false, []int64{200, 300}},
		{"inclusive reference", []int64{100, 200}, 100, true, []int64{200}},
		{"all expired", []int64{10, 20}, 100, true, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Queue
			for _, us := range tt.entries {
				q.Add(us)
			}

			if got := q.PurgeExpired(tt.reference); got != tt.wantPurged {
				t.Errorf("PurgeExpired() = %v, want %v", got, tt.wantPurged)
			}
			if q.Len() != len(tt.wantLeft) {
				t.Fatalf("Len() = %d, want %d", q.Len(), len(tt.wantLeft))
			}
			for i, us := range tt.wantLeft {
				if q.timesUs[i] != us {
					t.Errorf("entry %d = %d, want %d", i, q.timesUs[i], us)
				}
			}
		})
	}
}

func TestPeekEmpty(t *testing.T) {
	var q Queue
	if _, ok := q.PeekEarliest(); ok {
		t.Error("PeekEarliest() ok = true on empty queue")
	}

	q.Add(5)
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d", q.Len())
	}
}

// Property: the queue is always sorted and purge never keeps an expired entry.
func TestQueueSortedProperty(t *testing.T) {
	property := func(entries []int32, reference int32) bool {
		var q Queue
		for _, us := range entries {
			q.Add(int64(us))
		}
		if !slices.IsSorted(q.timesUs) {
			return false
		}

		q.PurgeExpired(int64(reference))
		if earliest, ok := q.PeekEarliest(); ok && earliest <= int64(reference) {
			return false
		}
		return slices.IsSorted(q.timesUs)
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}
