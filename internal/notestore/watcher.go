package notestore

import (
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher closed")

// defaultDebounce coalesces bursts of directory events (editors often
// write via temp file + rename, which fires several events per save).
const defaultDebounce = 100 * time.Millisecond

// ListChangedHandler is called after the notes directory content
// changes.
type ListChangedHandler func()

// Watcher monitors a notes directory and reports when the note list
// may have changed, so a file pane can refresh without polling.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	handler  ListChangedHandler
	debounce time.Duration
	pending  *time.Timer
	closed   bool
	done     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the event coalescing window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher starts watching dir and invokes handler on changes.
func NewWatcher(dir string, handler ListChangedHandler, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		handler:  handler,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// loop drains fsnotify events until the watcher is closed.
func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				w.schedule()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are not fatal; the list simply goes stale
			// until the next explicit refresh.
		case <-w.done:
			return
		}
	}
}

// schedule arms (or re-arms) the debounced notification.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.handler == nil {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.pending = nil
		w.mu.Unlock()
		if !closed {
			w.handler()
		}
	})
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}
