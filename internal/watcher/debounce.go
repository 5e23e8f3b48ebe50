package watcher

import (
	"sync"
	"time"
)

// EventClass separates file and directory events so the same path can carry
// an independent timer for each.
type EventClass int

const (
	FileEvent EventClass = iota
	DirEvent
)

type debounceKey struct {
	class EventClass
	path  string
}

// DebounceScheduler coalesces bursts of filesystem events. Each (class, path)
// pair owns at most one pending timer; scheduling again before it fires
// resets the window, so a burst of writes yields a single callback after the
// last one settles.
type DebounceScheduler struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[debounceKey]*time.Timer
	stopped bool
}

func NewDebounceScheduler(window time.Duration) *DebounceScheduler {
	return &DebounceScheduler{
		window: window,
		timers: make(map[debounceKey]*time.Timer),
	}
}

// Schedule arms (or re-arms) the timer for the given key. fn runs once on its
// own goroutine after the window elapses with no further Schedule calls for
// the key. After CancelAll, Schedule is a no-op.
func (d *DebounceScheduler) Schedule(class EventClass, path string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	key := debounceKey{class: class, path: path}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		// A Stop that raced this fire may already have armed a successor
		// under the same key; only remove the entry if it is still ours.
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// CancelAll stops every pending timer and rejects further scheduling. Timers
// that already fired may still be running their callback.
func (d *DebounceScheduler) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports the number of armed timers.
func (d *DebounceScheduler) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
