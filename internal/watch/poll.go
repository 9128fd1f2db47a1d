package watch

import (
	"os"
	"sort"
	"time"
)

// fileState is what the polling backend compares between scans.
type fileState struct {
	size  int64
	mtime time.Time
}

// pollBackend detects changes by listing the directory on every tick.
type pollBackend struct {
	known map[string]fileState
}

func newPollBackend(w *Watcher) (*pollBackend, error) {
	known, err := snapshot(w)
	if err != nil {
		return nil, err
	}
	return &pollBackend{known: known}, nil
}

func (p *pollBackend) run(w *Watcher) {
	ticker := w.clock.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}

		current, err := snapshot(w)
		if err != nil {
			// The directory may be mid-rename; try again next tick.
			w.logger.Warn("polling scripts dir", "dir", w.dir, "err", err)
			continue
		}
		for _, ev := range diffSnapshots(p.known, current) {
			w.emit(ev)
		}
		p.known = current
	}
}

// snapshot lists the matching files in the watched directory.
func snapshot(w *Watcher) (map[string]fileState, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if e.IsDir() || !w.matches(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files[e.Name()] = fileState{size: info.Size(), mtime: info.ModTime()}
	}
	return files, nil
}

// diffSnapshots returns the events that turn prev into cur, sorted by name.
func diffSnapshots(prev, cur map[string]fileState) []Event {
	var events []Event
	for name, state := range cur {
		old, ok := prev[name]
		switch {
		case !ok:
			events = append(events, Event{Name: name, Op: Create})
		case old.size != state.size || !old.mtime.Equal(state.mtime):
			events = append(events, Event{Name: name, Op: Write})
		}
	}
	for name := range prev {
		if _, ok := cur[name]; !ok {
			events = append(events, Event{Name: name, Op: Remove})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return events
}
