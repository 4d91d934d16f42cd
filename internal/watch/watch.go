// Package watch turns raw filesystem notifications for one target file
// into debounced Reload events (and immediate Deleted events), which the
// UI Controller turns into Reload notifications for the Renderer.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind distinguishes the two events the UI cares about.
type EventKind int

const (
	// Reload means the target file changed and should be re-opened,
	// after the debounce window has elapsed with no further activity.
	Reload EventKind = iota
	// Deleted means the target file was removed. Surfaced immediately,
	// not debounced.
	Deleted
)

// Event is delivered on the Watcher's output channel.
type Event struct {
	Kind EventKind
}

// Watcher watches the parent directory of a target file (so save-by-
// replace and transient removal still surface as events) and filters
// to events whose base name matches the target.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan Event
	errs   chan error

	debounce time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	pending   bool
	closeOnce sync.Once
}

// New starts watching path's parent directory. The returned channel
// receives debounced Reload/Deleted events until Close is called.
func New(path string, debounce time.Duration) (*Watcher, <-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		events:   make(chan Event, 16),
		errs:     make(chan error, 4),
		debounce: debounce,
	}

	base := filepath.Base(path)
	go w.run(base)

	return w, w.events, nil
}

// Errors returns the channel watcher-level errors (distinct from a
// Deleted event, which is a normal occurrence the UI surfaces once).
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) run(targetBase string) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != targetBase {
				continue
			}
			switch {
			case ev.Op == fsnotify.Chmod:
				// Access/metadata-only changes are ignored.
			case ev.Op&fsnotify.Remove != 0:
				w.emitDeleted()
			default:
				w.scheduleReload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) emitDeleted() {
	select {
	case w.events <- Event{Kind: Deleted}:
	default:
	}
}

// scheduleReload coalesces bursts of events (e.g. editors that do
// write+rename+create on save) into a single Reload after the debounce
// window has passed with no further activity - the one-slot debouncer
// spec.md describes.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		fire := w.pending
		w.pending = false
		w.mu.Unlock()
		if fire {
			select {
			case w.events <- Event{Kind: Reload}:
			default:
			}
		}
	})
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fsw.Close()
		close(w.events)
	})
	return err
}
