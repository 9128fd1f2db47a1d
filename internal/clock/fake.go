package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter

	// changed is broadcast whenever a waiter is registered, so that
	// BlockUntil can observe goroutines arming timers.
	changed *sync.Cond
}

// fakeWaiter is a pending After or ticker.
type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time

	// interval is non-zero for tickers, which are rescheduled after firing.
	interval time.Duration
	stopped  bool
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After registers a one-shot waiter that fires once the clock has been
// advanced by at least d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}
	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  ch,
	})
	c.changed.Broadcast()
	return ch
}

// NewTicker registers a periodic waiter.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
	return &Ticker{
		C: w.channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.stopped = true
		},
	}
}

// Advance moves the clock forward by d, firing every waiter whose deadline
// falls within the window in deadline order.  Sends never block: a waiter
// whose channel is already full loses the tick.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)
	for {
		next := c.earliest(target)
		if next == nil {
			break
		}
		c.current = next.deadline
		select {
		case next.channel <- c.current:
		default:
		}
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			next.stopped = true
		}
	}
	c.current = target

	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.stopped {
			live = append(live, w)
		}
	}
	c.waiters = live
}

// earliest returns the live waiter with the smallest deadline not after
// target, or nil.
func (c *FakeClock) earliest(target time.Time) *fakeWaiter {
	var best *fakeWaiter
	for _, w := range c.waiters {
		if w.stopped || w.deadline.After(target) {
			continue
		}
		if best == nil || w.deadline.Before(best.deadline) {
			best = w
		}
	}
	return best
}

// BlockUntil waits until at least n waiters are pending.  Tests use it to
// make sure a goroutine has armed its timer before calling Advance.
func (c *FakeClock) BlockUntil(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending() < n {
		c.changed.Wait()
	}
}

func (c *FakeClock) pending() int {
	n := 0
	for _, w := range c.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}
