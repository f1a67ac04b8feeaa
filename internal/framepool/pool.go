// Package framepool holds the in-flight frame records of one frame clock.
//
// Frames live in a fixed arena of Capacity slots addressed by Handle.
// A slot is in use while its use count is non-zero. Capacity covers the
// worst case of the clock: two frames in flight (triple buffering), plus
// the last presented frame.
package framepool

import (
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/presentation"
)

// Capacity is the number of frame slots.
const Capacity = 3

// Handle addresses a slot in the pool. None is the empty handle.
type Handle int8

// None is the handle of no frame.
const None Handle = -1

// Valid reports whether h refers to a slot.
func (h Handle) Valid() bool {
	return h >= 0 && int(h) < Capacity
}

// Frame is the timing record of one dispatched frame.
// Timestamps are monotonic microseconds, 0 = unknown.
type Frame struct {
	UseCount int

	// FrameCount is the clock's dispatch counter at dispatch time
	FrameCount int64

	DispatchTimeUs     int64
	DispatchLatenessUs int64

	PresentationTimeUs       int64
	TargetPresentationTimeUs int64
	FlipTimeUs               int64

	PresentationFlags presentation.Flags
	GotMeasurements   bool
}

// Pool is the frame arena. The zero value is an empty pool.
type Pool struct {
	slots [Capacity]Frame
}

// Acquire returns a zeroed frame with a use count of 1.
//
// Running out of slots means the in-flight bookkeeping is corrupt;
// Acquire panics rather than hand out a frame still owned elsewhere.
func (p *Pool) Acquire() Handle {
	for i := range p.slots {
		if p.slots[i].UseCount == 0 {
			p.slots[i] = Frame{UseCount: 1}
			return Handle(i)
		}
	}
	panic(fmt.Sprintf("framepool: all %d frame slots in use", Capacity))
}

// Retain adds an owner to h and returns it.
func (p *Pool) Retain(h Handle) Handle {
	if !h.Valid() {
		return None
	}
	if p.slots[h].UseCount <= 0 {
		panic(fmt.Sprintf("framepool: retain of free slot %d", h))
	}
	p.slots[h].UseCount++
	return h
}

// Release drops an owner of h. The slot is reusable once no owner remains.
func (p *Pool) Release(h Handle) {
	if !h.Valid() {
		return
	}
	if p.slots[h].UseCount <= 0 {
		panic(fmt.Sprintf("framepool: release of free slot %d", h))
	}
	p.slots[h].UseCount--
}

// Assign makes role own h: the previous occupant of role is released,
// then h is retained.
func (p *Pool) Assign(role *Handle, h Handle) {
	if *role == h {
		return
	}
	p.Release(*role)
	*role = p.Retain(h)
}

// Clear releases the occupant of role and empties it.
func (p *Pool) Clear(role *Handle) {
	p.Release(*role)
	*role = None
}

// Get returns the frame behind h, or nil for None.
func (p *Pool) Get(h Handle) *Frame {
	if !h.Valid() {
		return nil
	}
	return &p.slots[h]
}

// InUse returns the number of slots with a non-zero use count.
func (p *Pool) InUse() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].UseCount > 0 {
			n++
		}
	}
	return n
}
