package util

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall time and the logical slot stamped on records and events
type Clock interface {
	Now() time.Time
	Slot() uint64
}

// SystemClock derives slots from elapsed time since genesis at a fixed slot duration.
// Slots never move backwards even if the wall clock does.
type SystemClock struct {
	genesis      time.Time
	slotDuration time.Duration
	last         atomic.Uint64
}

func NewSystemClock(genesis time.Time, slotDuration time.Duration) *SystemClock {
	if slotDuration <= 0 {
		slotDuration = 400 * time.Millisecond
	}
	return &SystemClock{genesis: genesis, slotDuration: slotDuration}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *SystemClock) Slot() uint64 {
	elapsed := time.Since(c.genesis)
	var slot uint64
	if elapsed > 0 {
		slot = uint64(elapsed / c.slotDuration)
	}
	for {
		prev := c.last.Load()
		if slot <= prev {
			return prev
		}
		if c.last.CompareAndSwap(prev, slot) {
			return slot
		}
	}
}

// ManualClock is a Clock moved by hand
type ManualClock struct {
	now  atomic.Int64
	slot atomic.Uint64
}

func NewManualClock(now time.Time, slot uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now.UnixNano())
	c.slot.Store(slot)
	return c
}

func (c *ManualClock) Now() time.Time {
	return time.Unix(0, c.now.Load()).UTC()
}

func (c *ManualClock) Slot() uint64 {
	return c.slot.Load()
}

// Advance moves time and slot forward
func (c *ManualClock) Advance(d time.Duration, slots uint64) {
	c.now.Add(int64(d))
	c.slot.Add(slots)
}
