// Package clock abstracts the time operations used by the watcher and the
// debouncer so that tests can drive them deterministically.
package clock

import "time"

// Clock is the subset of the time package the host depends on.
//
// Production code uses Real(); tests use Fake() and move time forward with
// Advance.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed.  If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d.  Panics if
	// d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C.  C has capacity 1: ticks are dropped
// if the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns the ticker off.  It does not close C.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
