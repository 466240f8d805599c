package simclock

import "time"

// ClockConfig sets the fixed timestep and polling cadence.
type ClockConfig struct {
	FixedDt      time.Duration
	MaxFrameTime time.Duration // elapsed time per poll is clamped to this
	PollInterval time.Duration
}

// Clock is a fixed-timestep accumulator. Each poll adds the (clamped) wall
// time elapsed since the previous poll and pops one tick per FixedDt
// accumulated. Every tick represents exactly FixedDt of simulated time.
type Clock struct {
	sched Scheduler
	cfg   ClockConfig
	tick  func(n uint64)

	acc     time.Duration
	last    time.Time
	ticks   uint64
	timer   Timer
	running bool
	stopped bool
}

// NewClock creates an idle clock calling tick once per fixed step.
func NewClock(s Scheduler, cfg ClockConfig, tick func(n uint64)) *Clock {
	return &Clock{sched: s, cfg: cfg, tick: tick}
}

// Start begins self-rescheduled polling. Starting a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.stopped = false
	c.last = c.sched.Now()
	c.arm()
}

// Stop cancels the pending poll. A stopped clock keeps its accumulator.
func (c *Clock) Stop() {
	c.running = false
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) Running() bool {
	return c.running
}

func (c *Clock) arm() {
	c.timer = c.sched.AfterFunc(c.cfg.PollInterval, func() {
		c.timer = nil
		if !c.running {
			return
		}
		c.Poll()
		if c.running {
			c.arm()
		}
	})
}

// Poll measures wall time since the previous poll and runs the due ticks.
func (c *Clock) Poll() int {
	now := c.sched.Now()
	elapsed := now.Sub(c.last)
	c.last = now
	return c.Advance(elapsed)
}

// Advance feeds elapsed wall time into the accumulator and runs due ticks.
// It returns the number of ticks run. A tick callback may stop the clock,
// which ends the batch.
func (c *Clock) Advance(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	if c.cfg.MaxFrameTime > 0 && elapsed > c.cfg.MaxFrameTime {
		elapsed = c.cfg.MaxFrameTime
	}
	c.acc += elapsed

	n := 0
	for c.acc >= c.cfg.FixedDt {
		c.acc -= c.cfg.FixedDt
		c.ticks++
		n++
		c.tick(c.ticks)
		if c.stopped {
			break
		}
	}
	return n
}

// Accumulated is the simulated time not yet consumed by a tick.
func (c *Clock) Accumulated() time.Duration {
	return c.acc
}

// Ticks is the number of ticks run so far.
func (c *Clock) Ticks() uint64 {
	return c.ticks
}
