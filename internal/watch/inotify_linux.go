package watch

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// inotifyMask selects the directory events that can change the script set.
const inotifyMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_CLOSE_WRITE |
	unix.IN_DELETE | unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_ONLYDIR

// nameMax is NAME_MAX on Linux.
const nameMax = 255

// inotifyBackend reads events from an inotify instance watching one
// directory.
type inotifyBackend struct {
	fd int
}

func newNativeBackend(w *Watcher) (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, w.dir, inotifyMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", w.dir, err)
	}
	return &inotifyBackend{fd: fd}, nil
}

// run polls the inotify fd until the watcher is stopped.  poll(2) uses a
// 100ms timeout so the stop channel is checked regularly.
func (b *inotifyBackend) run(w *Watcher) {
	defer unix.Close(b.fd)

	// Room for 64 events with maximum-length names.
	buffer := make([]byte, 64*(unix.SizeofInotifyEvent+nameMax+1))
	for !w.stopped() {
		pollDescriptors := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			w.logger.Error("polling inotify", "err", err)
			return
		}
		if count == 0 {
			continue
		}

		bytesRead, err := unix.Read(b.fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			w.logger.Error("reading inotify", "err", err)
			return
		}

		for _, raw := range decodeInotifyEvents(buffer[:bytesRead]) {
			switch {
			case raw.mask&unix.IN_Q_OVERFLOW != 0:
				w.emit(Event{Op: Overflow})
			case raw.mask&unix.IN_IGNORED != 0:
				// The directory itself was removed or unmounted.
				w.logger.Error("scripts dir is no longer watched", "dir", w.dir)
				return
			case raw.mask&unix.IN_ISDIR != 0 || !w.matches(raw.name):
				continue
			default:
				w.emit(Event{Name: raw.name, Op: inotifyOp(raw.mask)})
			}
		}
	}
}

// inotifyOp maps an inotify mask to an Op.
func inotifyOp(mask uint32) Op {
	switch {
	case mask&unix.IN_CREATE != 0:
		return Create
	case mask&unix.IN_DELETE != 0:
		return Remove
	case mask&(unix.IN_MOVED_FROM|unix.IN_MOVED_TO) != 0:
		return Rename
	default:
		return Write
	}
}

// inotifyEvent is one decoded entry from the inotify fd.
type inotifyEvent struct {
	mask uint32
	name string
}

// decodeInotifyEvents splits a buffer of raw inotify events.
//
// Inotify event layout (from inotify(7)):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded to alignment
//	};
func decodeInotifyEvents(buffer []byte) []inotifyEvent {
	var events []inotifyEvent
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		var name string
		if nameLength > 0 {
			name = nullTerminatedString(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
		}
		events = append(events, inotifyEvent{mask: mask, name: name})
		offset += eventSize
	}
	return events
}

// nullTerminatedString extracts a string from a null-padded byte slice.
func nullTerminatedString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
