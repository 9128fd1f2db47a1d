package watch

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/p00ya/userscript-bridge/internal/clock"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// collect reads n events from w, failing on timeout.
func collect(t *testing.T, w *Watcher, n int) []Event {
	t.Helper()
	var events []Event
	for len(events) < n {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				t.Fatalf("events closed after %v", events)
			}
			events = append(events, ev)
		case <-time.After(timeoutSeconds * time.Second):
			t.Fatalf("Timeout, got %v, want %d events", events, n)
		}
	}
	return events
}

func TestPollWatcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.js"), "1")

	clk := clock.Fake(epoch)
	w, err := New(dir, ".js", WithPolling(time.Second), WithClock(clk))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	clk.BlockUntil(1)

	writeFile(t, filepath.Join(dir, "a.js"), "22")
	writeFile(t, filepath.Join(dir, "b.js"), "new")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "dir.js"), 0o755); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Second)

	want := []Event{{Name: "a.js", Op: Write}, {Name: "b.js", Op: Create}}
	if got := collect(t, w, 2); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	if err := os.Remove(filepath.Join(dir, "b.js")); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Second)

	want = []Event{{Name: "b.js", Op: Remove}}
	if got := collect(t, w, 1); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestWatcherCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Public", "Scripts")
	w, err := New(dir, ".js", WithPolling(time.Second), WithClock(clock.Fake(epoch)))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("New did not create %s: %v", dir, err)
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := New(t.TempDir(), ".js", WithPolling(time.Second), WithClock(clock.Fake(epoch)))
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	w.Close()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("got event after Close")
		}
	case <-time.After(timeoutSeconds * time.Second):
		t.Fatal("Events not closed")
	}
}

func TestDiffSnapshots(t *testing.T) {
	t0 := epoch
	t1 := epoch.Add(time.Second)
	prev := map[string]fileState{
		"same.js":    {size: 1, mtime: t0},
		"touched.js": {size: 1, mtime: t0},
		"grown.js":   {size: 1, mtime: t0},
		"gone.js":    {size: 1, mtime: t0},
	}
	cur := map[string]fileState{
		"same.js":    {size: 1, mtime: t0},
		"touched.js": {size: 1, mtime: t1},
		"grown.js":   {size: 2, mtime: t0},
		"new.js":     {size: 1, mtime: t0},
	}
	want := []Event{
		{Name: "gone.js", Op: Remove},
		{Name: "grown.js", Op: Write},
		{Name: "new.js", Op: Create},
		{Name: "touched.js", Op: Write},
	}
	if got := diffSnapshots(prev, cur); !reflect.DeepEqual(got, want) {
		t.Errorf("diffSnapshots() = %v, want %v", got, want)
	}
}

func TestEmitDropsWhenFull(t *testing.T) {
	w := &Watcher{
		events: make(chan Event, 1),
		logger: testLogger(),
	}
	w.emit(Event{Name: "a.js", Op: Write})
	// Must not block.
	w.emit(Event{Name: "b.js", Op: Write})
	if ev := <-w.events; ev.Name != "a.js" {
		t.Errorf("queued %v, want a.js", ev)
	}
}

func TestOpString(t *testing.T) {
	if got := Rename.String(); got != "rename" {
		t.Errorf("Rename.String() = %q", got)
	}
	if got := Op(42).String(); got != "Op(42)" {
		t.Errorf("Op(42).String() = %q", got)
	}
}
