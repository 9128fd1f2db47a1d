package watch

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// rawInotifyEvent encodes one event the way the kernel does, padding the
// name to 16 bytes.
func rawInotifyEvent(mask uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = (len(name)/16 + 1) * 16
	}
	buf := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.NativeEndian.PutUint32(buf[4:8], mask)
	binary.NativeEndian.PutUint32(buf[12:16], uint32(nameLen))
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func TestDecodeInotifyEvents(t *testing.T) {
	var buf []byte
	buf = append(buf, rawInotifyEvent(unix.IN_CREATE, "a.js")...)
	buf = append(buf, rawInotifyEvent(unix.IN_Q_OVERFLOW, "")...)
	buf = append(buf, rawInotifyEvent(unix.IN_MOVED_TO, "a-very-long-script-name.js")...)
	// A truncated trailing event is ignored.
	buf = append(buf, rawInotifyEvent(unix.IN_DELETE, "cut.js")[:20]...)

	events := decodeInotifyEvents(buf)
	if len(events) != 3 {
		t.Fatalf("decoded %d events, want 3: %+v", len(events), events)
	}
	if events[0].name != "a.js" || inotifyOp(events[0].mask) != Create {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].name != "" || events[1].mask&unix.IN_Q_OVERFLOW == 0 {
		t.Errorf("event 1 = %+v", events[1])
	}
	if events[2].name != "a-very-long-script-name.js" || inotifyOp(events[2].mask) != Rename {
		t.Errorf("event 2 = %+v", events[2])
	}
}

func TestInotifyOp(t *testing.T) {
	var tests = []struct {
		mask uint32
		want Op
	}{
		{unix.IN_CREATE, Create},
		{unix.IN_MODIFY, Write},
		{unix.IN_CLOSE_WRITE, Write},
		{unix.IN_DELETE, Remove},
		{unix.IN_MOVED_FROM, Rename},
		{unix.IN_MOVED_TO, Rename},
	}
	for _, tt := range tests {
		if got := inotifyOp(tt.mask); got != tt.want {
			t.Errorf("inotifyOp(%#x) = %v, want %v", tt.mask, got, tt.want)
		}
	}
}

func TestInotifyWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, ".js", WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.Mkdir(filepath.Join(dir, "dir.js"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "a.js"), "alert(1)")

	deadline := time.After(timeoutSeconds * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if !strings.HasSuffix(ev.Name, ".js") || ev.Name == "dir.js" {
				t.Fatalf("unexpected event %+v", ev)
			}
			if ev.Name == "a.js" {
				return
			}
		case <-deadline:
			t.Fatal("Timeout waiting for a.js event")
		}
	}
}
