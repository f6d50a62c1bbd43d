package positioner

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arloliu/go-motion/channel"
	"github.com/arloliu/go-motion/internal/util"
)

// doneFlagCompletion settles on the first done value notified after the set-point write.
type doneFlagCompletion struct{}

func (c *doneFlagCompletion) arm(m *move) error {
	return m.subscribe(m.p.chans.Done, func(ev channel.Event) {
		if !m.fresh(ev) {
			return
		}

		done, err := m.p.cfg.isDone(ev.Value)
		if err != nil {
			m.fail(err)
			return
		}
		m.logger.Debug("done flag update", "value", ev.Value, "done", done)
		if done {
			m.finishAtReadback()
		}
	})
}

func (c *doneFlagCompletion) acknowledged(*move) {}

func (c *doneFlagCompletion) release() {}

// putCompletion settles on the acknowledgement of the set-point write. With a done channel the
// flag must also leave the done value and return to it.
type putCompletion struct {
	hasDone bool

	mu       sync.Mutex
	acked    bool
	busy     bool
	returned bool
}

func (c *putCompletion) arm(m *move) error {
	if !c.hasDone {
		return nil
	}

	return m.subscribe(m.p.chans.Done, func(ev channel.Event) {
		if !m.fresh(ev) {
			return
		}

		done, err := m.p.cfg.isDone(ev.Value)
		if err != nil {
			m.fail(err)
			return
		}

		c.mu.Lock()
		switch {
		case !done:
			c.busy = true
		case c.busy:
			c.returned = true
		}
		ready := c.readyLocked()
		c.mu.Unlock()

		if ready {
			m.finishAtReadback()
		}
	})
}

func (c *putCompletion) acknowledged(m *move) {
	m.logger.Debug("put completion acknowledged")

	c.mu.Lock()
	c.acked = true
	ready := c.readyLocked()
	c.mu.Unlock()

	if ready {
		m.finishAtReadback()
	}
}

func (c *putCompletion) readyLocked() bool {
	return c.acked && (!c.hasDone || c.returned)
}

func (c *putCompletion) release() {}

// toleranceCompletion settles once the readback stays within tolerance of the target.
//
// A readback entering the tolerance starts the settle period. The move settles on a later
// in-tolerance readback received at least the settle delay after entry, or when the settle
// timer fires while the readback is still within tolerance. Leaving the tolerance restarts.
// Without a settle delay the timer waits confirmDelay, so a readback that reaches the target
// once and then goes quiet still finishes the move.
type toleranceCompletion struct {
	mu        sync.Mutex
	inTol     bool
	enteredAt time.Time
	last      float64
	gen       uint64
	timer     *time.Timer
	released  bool
}

// confirmDelay is how long an in-tolerance readback waits for confirmation when no settle
// delay is configured.
const confirmDelay = 100 * time.Millisecond

func (c *toleranceCompletion) arm(m *move) error {
	return m.subscribe(m.p.chans.Readback, func(ev channel.Event) {
		if !m.fresh(ev) {
			return
		}

		v, ok := util.ToFloat64(ev.Value)
		if !ok {
			return
		}
		c.evaluate(m, v, false)
	})
}

// acknowledged evaluates the current position once the set-point is written, so a move to
// the present position enters the tolerance without waiting for a readback change.
func (c *toleranceCompletion) acknowledged(m *move) {
	if v, err := m.p.Position(); err == nil {
		c.evaluate(m, v, true)
	}
}

func (c *toleranceCompletion) evaluate(m *move, v float64, entryOnly bool) {
	within := withinTolerance(v, m.target, m.p.cfg.tolerance)
	settle := m.p.cfg.settleTime

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.last = v

	if !within {
		if c.inTol {
			m.logger.Debug("readback left tolerance", "readback", v)
		}
		c.inTol = false
		c.stopTimerLocked()
		c.mu.Unlock()

		return
	}

	now := time.Now()
	if !c.inTol {
		c.inTol = true
		c.enteredAt = now
		c.gen++
		delay := settle
		if delay <= 0 {
			delay = confirmDelay
		}
		gen := c.gen
		c.timer = time.AfterFunc(delay, func() { c.confirm(m, gen) })
		c.mu.Unlock()
		m.logger.Debug("readback entered tolerance", "readback", v)

		return
	}

	confirmed := !entryOnly && now.Sub(c.enteredAt) >= settle
	c.mu.Unlock()

	if confirmed {
		m.finish(v)
	}
}

func (c *toleranceCompletion) confirm(m *move, gen uint64) {
	c.mu.Lock()
	ok := !c.released && c.inTol && c.gen == gen
	v := c.last
	c.mu.Unlock()

	if ok {
		m.finish(v)
	}
}

func (c *toleranceCompletion) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *toleranceCompletion) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released = true
	c.stopTimerLocked()
}

// withinTolerance compares in decimal so that a readback exactly at the tolerance boundary is
// not rejected by binary rounding.
func withinTolerance(readback, target, tolerance float64) bool {
	diff := decimal.NewFromFloat(readback).Sub(decimal.NewFromFloat(target)).Abs()

	return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}
