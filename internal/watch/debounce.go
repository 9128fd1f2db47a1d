package watch

import (
	"context"
	"time"

	"github.com/p00ya/userscript-bridge/internal/clock"
)

// DefaultQuiet is the default debounce interval.
const DefaultQuiet = 100 * time.Millisecond

// Debounce coalesces events from in.  Every event restarts a quiet period of
// length quiet; when the period elapses with no further events, the events
// seen since the last batch are emitted as one batch.
//
// When in is closed, any pending batch is emitted and the returned channel
// is closed.  Cancelling ctx closes the returned channel without emitting.
func Debounce(ctx context.Context, clk clock.Clock, quiet time.Duration, in <-chan Event) <-chan []Event {
	out := make(chan []Event)
	go func() {
		defer close(out)

		var pending []Event
		// timer is nil while no batch is pending.
		var timer <-chan time.Time

		flush := func() bool {
			batch := pending
			pending = nil
			timer = nil
			select {
			case out <- batch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					if len(pending) > 0 {
						flush()
					}
					return
				}
				pending = append(pending, ev)
				timer = clk.After(quiet)
			case <-timer:
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}
