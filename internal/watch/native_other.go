//go:build !linux

package watch

// newNativeBackend falls back to polling where inotify is unavailable.
func newNativeBackend(w *Watcher) (backend, error) {
	p, err := newPollBackend(w)
	if err != nil {
		return nil, err
	}
	return p, nil
}
