package sequencer

import (
	"fmt"
	"time"
)

// BeatsPerBar is fixed; the bar is the recorder quantization grid.
const BeatsPerBar = 4

// Clock is the master tick generator. It is polled, never sleeps, and
// derives every deadline from its start time so jitter never accumulates.
type Clock struct {
	ticksPerBeat   int
	secondsPerTick float64
	startTime      time.Time

	absoluteTick int64
	relativeTick int // 1..BeatsPerBar*ticksPerBeat, 0 before the first tick
	beat         int // 1..BeatsPerBar

	justTicked bool
	active     bool
}

// NewClock returns an inactive clock.
func NewClock() *Clock {
	return &Clock{beat: 1}
}

// Activate anchors the clock at now and zeroes the counters.
func (c *Clock) Activate(tempo float64, ticksPerBeat int, now time.Time) error {
	if tempo <= 0 || ticksPerBeat <= 0 {
		return fmt.Errorf("%w: tempo=%v ticks_per_beat=%d", ErrInvalidClock, tempo, ticksPerBeat)
	}
	c.ticksPerBeat = ticksPerBeat
	c.secondsPerTick = 60 / tempo / float64(ticksPerBeat)
	c.startTime = now
	c.absoluteTick = 0
	c.relativeTick = 0
	c.beat = 1
	c.justTicked = false
	c.active = true
	return nil
}

// Update performs at most one tick per call. Ticks missed while the caller
// was late are not replayed in bulk; the clock fires on every following
// call until it is back on its deadline.
func (c *Clock) Update(now time.Time) {
	if !c.active {
		return
	}
	c.justTicked = false
	if !now.Before(c.NextDeadline()) {
		c.tick()
	}
}

func (c *Clock) tick() {
	c.absoluteTick++
	c.relativeTick++
	if c.relativeTick > c.BarLength() {
		c.relativeTick = 1
	}
	c.beat = 1 + ((c.relativeTick-1)/c.ticksPerBeat)%BeatsPerBar
	c.justTicked = true
}

// Deactivate stops ticking. Counters are kept until the next Activate.
func (c *Clock) Deactivate() {
	c.active = false
	c.justTicked = false
}

// NextDeadline is the wall time at which the next tick is due.
func (c *Clock) NextDeadline() time.Time {
	return c.Deadline(c.absoluteTick + 1)
}

// Deadline returns start + n*secondsPerTick.
func (c *Clock) Deadline(n int64) time.Time {
	return c.startTime.Add(time.Duration(c.secondsPerTick * float64(n) * float64(time.Second)))
}

// Lag reports how many ticks the clock is behind at now.
func (c *Clock) Lag(now time.Time) int64 {
	if !c.active || c.secondsPerTick == 0 {
		return 0
	}
	due := int64(now.Sub(c.startTime).Seconds() / c.secondsPerTick)
	if due <= c.absoluteTick {
		return 0
	}
	return due - c.absoluteTick
}

func (c *Clock) TicksPerBeat() int       { return c.ticksPerBeat }
func (c *Clock) SecondsPerTick() float64 { return c.secondsPerTick }
func (c *Clock) StartTime() time.Time    { return c.startTime }
func (c *Clock) AbsoluteTick() int64     { return c.absoluteTick }
func (c *Clock) RelativeTick() int       { return c.relativeTick }
func (c *Clock) Beat() int               { return c.beat }
func (c *Clock) JustTicked() bool        { return c.justTicked }
func (c *Clock) IsActive() bool          { return c.active }

// BarLength is the number of ticks in one bar.
func (c *Clock) BarLength() int {
	return BeatsPerBar * c.ticksPerBeat
}

// IsBarStart reports whether the current tick is the first tick of a bar.
func (c *Clock) IsBarStart() bool {
	return c.relativeTick == 1 && c.beat == 1
}
