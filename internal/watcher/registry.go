package watcher

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfd/shelfd/internal/models"
)

// LibraryLister is the slice of the catalog store the registry reads.
type LibraryLister interface {
	ListWatchEnabled() ([]*models.Library, error)
}

// WatchedLibrary is one entry of a registry status snapshot.
type WatchedLibrary struct {
	ID   uuid.UUID
	Name string
	Kind models.LibraryKind
	Path string
}

// Status is a point-in-time view of the registry.
type Status struct {
	Running   bool
	Libraries []WatchedLibrary
}

// Registry owns one LibraryWatcher per watch-enabled library and keeps the
// set in step with configuration. Start, Sync and Stop serialize with each
// other; Status only takes a snapshot and never waits on them.
type Registry struct {
	libs     LibraryLister
	ingestor Ingestor
	resolver DirResolver
	window   time.Duration
	maxJobs  int

	syncMu  sync.Mutex
	mu      sync.RWMutex
	running bool
	byID    map[uuid.UUID]*LibraryWatcher
}

func NewRegistry(libs LibraryLister, ingestor Ingestor, resolver DirResolver, window time.Duration, maxJobs int) *Registry {
	return &Registry{
		libs:     libs,
		ingestor: ingestor,
		resolver: resolver,
		window:   window,
		maxJobs:  maxJobs,
		byID:     make(map[uuid.UUID]*LibraryWatcher),
	}
}

// Start brings up a watcher for every watch-enabled library. Calling Start
// on a running registry is a no-op.
func (r *Registry) Start() error {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	// Only flip to running once the initial load succeeds, so a failed
	// Start can be retried instead of turning into a silent no-op.
	if err := r.sync(); err != nil {
		return err
	}
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	log.Printf("[registry] watching %d libraries", r.count())
	return nil
}

// Sync reconciles running watchers against the current library configuration:
// newly enabled libraries gain a watcher, disabled or deleted ones lose
// theirs. No-op when the registry is not running.
func (r *Registry) Sync() error {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return nil
	}
	return r.sync()
}

func (r *Registry) sync() error {
	libraries, err := r.libs.ListWatchEnabled()
	if err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}

	wanted := make(map[uuid.UUID]*models.Library, len(libraries))
	for _, lib := range libraries {
		wanted[lib.ID] = lib
	}

	r.mu.RLock()
	var stale []*LibraryWatcher
	for id, w := range r.byID {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, w)
		}
	}
	r.mu.RUnlock()

	for _, w := range stale {
		r.stopWatcher(w)
	}
	for _, lib := range libraries {
		r.startWatcher(lib)
	}
	return nil
}

// WatchLibrary starts a watcher for a single library immediately, ahead of
// the next periodic sync. Already watched libraries are left alone.
func (r *Registry) WatchLibrary(lib *models.Library) error {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("registry not running")
	}
	r.startWatcher(lib)
	return nil
}

// UnwatchLibrary stops and discards the watcher for the given library, if one
// is running.
func (r *Registry) UnwatchLibrary(id uuid.UUID) {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	r.mu.RLock()
	w := r.byID[id]
	r.mu.RUnlock()
	if w != nil {
		r.stopWatcher(w)
	}
}

// Stop shuts down every watcher. Safe to call on a registry that never
// started, and idempotent.
func (r *Registry) Stop() {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	watchers := make([]*LibraryWatcher, 0, len(r.byID))
	for _, w := range r.byID {
		watchers = append(watchers, w)
	}
	r.byID = make(map[uuid.UUID]*LibraryWatcher)
	r.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	log.Printf("[registry] stopped")
}

// Status returns a snapshot of the watched set without blocking on an
// in-flight Sync.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Status{Running: r.running}
	for _, w := range r.byID {
		lib := w.Library()
		s.Libraries = append(s.Libraries, WatchedLibrary{
			ID:   lib.ID,
			Name: lib.Name,
			Kind: lib.Kind,
			Path: lib.Path,
		})
	}
	return s
}

func (r *Registry) startWatcher(lib *models.Library) {
	r.mu.RLock()
	_, exists := r.byID[lib.ID]
	r.mu.RUnlock()
	if exists {
		return
	}

	info, err := os.Stat(lib.Path)
	if err != nil || !info.IsDir() {
		log.Printf("[registry] skipping %s: root %s not accessible", lib.Name, lib.Path)
		return
	}

	w := NewLibraryWatcher(*lib, r.ingestor, r.resolver, r.window, r.maxJobs)
	if err := w.Start(); err != nil {
		log.Printf("[registry] failed to watch %s: %v", lib.Name, err)
		return
	}

	r.mu.Lock()
	r.byID[lib.ID] = w
	r.mu.Unlock()
}

func (r *Registry) stopWatcher(w *LibraryWatcher) {
	lib := w.Library()
	r.mu.Lock()
	delete(r.byID, lib.ID)
	r.mu.Unlock()
	w.Stop()
	log.Printf("[registry] no longer watching %s", lib.Name)
}

func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
