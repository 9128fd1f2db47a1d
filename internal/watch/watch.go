// Package watch reports changes to the script files in a directory.
//
// A Watcher delivers raw events on a bounded channel; Debounce collapses
// bursts of them into one batch per quiet period.
package watch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/p00ya/userscript-bridge/internal/clock"
)

// Op is the kind of change an Event reports.
type Op uint8

const (
	Create Op = iota + 1
	Write
	Remove
	Rename

	// Overflow means the kernel dropped events.  Its Event has no Name and
	// is delivered regardless of the suffix filter.
	Overflow
)

func (op Op) String() string {
	switch op {
	case Create:
		return "create"
	case Write:
		return "write"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	case Overflow:
		return "overflow"
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Event is a change to one file in the watched directory.
type Event struct {
	// Name is the base name of the file.
	Name string
	Op   Op
}

// eventBuffer is the capacity of the Events channel.
const eventBuffer = 64

// DefaultPollInterval is how often the polling backend rescans.
const DefaultPollInterval = 500 * time.Millisecond

// Watcher watches one directory, non-recursively.
type Watcher struct {
	dir    string
	suffix string
	logger *slog.Logger

	// clock and pollInterval drive the polling backend.
	clock        clock.Clock
	pollInterval time.Duration
	forcePoll    bool

	backend backend

	// events is written only by the backend goroutine, and closed when it
	// exits.
	events chan Event

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// backend produces events for a Watcher until w.stop is closed.
type backend interface {
	run(w *Watcher)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for dropped events and backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithClock sets the clock used by the polling backend.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithPolling forces the polling backend even where kernel notifications
// are available, e.g. for network filesystems that never deliver them.
// An interval <= 0 selects DefaultPollInterval.
func WithPolling(interval time.Duration) Option {
	return func(w *Watcher) {
		w.forcePoll = true
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// New starts watching dir for changes to files whose names end in suffix.
// The directory is created if it does not exist.
func New(dir, suffix string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:          dir,
		suffix:       suffix,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:        clock.Real(),
		pollInterval: DefaultPollInterval,
		events:       make(chan Event, eventBuffer),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watched dir: %w", err)
	}

	var err error
	if w.forcePoll {
		var p *pollBackend
		if p, err = newPollBackend(w); err == nil {
			w.backend = p
		}
	} else {
		w.backend, err = newNativeBackend(w)
	}
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(w.done)
		defer close(w.events)
		w.backend.run(w)
	}()
	return w, nil
}

// Events returns the channel of changes.  It is closed after Close, or if
// the backend fails.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and waits for its goroutine to exit.  It is safe
// to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
	return nil
}

// matches reports whether a file name is one the watcher reports.
func (w *Watcher) matches(name string) bool {
	return name != "" && strings.HasSuffix(name, w.suffix)
}

// emit queues ev without blocking.  When the queue is full the event is
// dropped: a rescan is already pending, and it will see this change too.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Debug("event queue full, dropping event", "name", ev.Name, "op", ev.Op)
	}
}

// stopped reports whether Close has been called.
func (w *Watcher) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}
