package testutils

import (
	"sync"
	"time"

	"github.com/pior/homeworks/protocol"
)

// ManualClock is a protocol.Clock whose timers only fire when the test says so.
type ManualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

var _ protocol.Clock = (*ManualClock)(nil)

type manualTimer struct {
	clock   *ManualClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc registers f to run on the next Fire.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) protocol.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Pending returns the number of timers neither stopped nor fired.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Delays returns the delay of every timer ever scheduled.
func (c *ManualClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	delays := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		delays[i] = t.delay
	}
	return delays
}

// Fire runs every pending timer on the calling goroutine and returns how many ran.
func (c *ManualClock) Fire() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

// FireStopped runs the callback of timers that were stopped, as a runtime
// timer may do when Stop loses the race with expiry.
func (c *ManualClock) FireStopped() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}
