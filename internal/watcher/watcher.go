package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/shelfd/shelfd/internal/models"
	"github.com/shelfd/shelfd/internal/scanner"
)

// Ingestor is the downstream consumer of settled file events.
type Ingestor interface {
	Ingest(ctx context.Context, libraryID uuid.UUID, libraryRoot, relPath string, kind models.LibraryKind) error
	Remove(absPath string) error
}

// DirResolver materializes collections for settled directory events.
type DirResolver interface {
	Resolve(libraryID uuid.UUID, kind models.LibraryKind, relDir string) (uuid.UUID, error)
}

// Watcher lifecycle states.
const (
	stateStopped int32 = iota
	stateStarting
	stateWatching
	stateStopping
)

// LibraryWatcher observes one library root recursively and feeds settled
// events into the ingestion pipeline. Additions are debounced per path;
// removals dispatch immediately. Directory removals are logged only, the
// collection tree is never pruned from filesystem events.
type LibraryWatcher struct {
	lib      models.Library
	ingestor Ingestor
	resolver DirResolver
	debounce *DebounceScheduler

	fsw   *fsnotify.Watcher
	state atomic.Int32
	sem   chan struct{}
	wg    sync.WaitGroup
	done  chan struct{}

	mu          sync.Mutex
	watchedDirs map[string]bool

	// OnReady, when set, is called once the initial recursive registration
	// finishes, with the number of directories and media files seen.
	OnReady func(dirs, files int)
}

func NewLibraryWatcher(lib models.Library, ingestor Ingestor, resolver DirResolver, window time.Duration, maxJobs int) *LibraryWatcher {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &LibraryWatcher{
		lib:         lib,
		ingestor:    ingestor,
		resolver:    resolver,
		debounce:    NewDebounceScheduler(window),
		sem:         make(chan struct{}, maxJobs),
		watchedDirs: make(map[string]bool),
	}
}

// Start registers the library root and every subdirectory, then begins
// consuming events. Start on an already running watcher is a no-op.
func (w *LibraryWatcher) Start() error {
	if !w.state.CompareAndSwap(stateStopped, stateStarting) {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.state.Store(stateStopped)
		return err
	}
	w.fsw = fsw
	w.done = make(chan struct{})

	dirs, files := 0, 0
	err = filepath.Walk(w.lib.Path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			log.Printf("[watcher] walk error under %s: %v", path, walkErr)
			return nil
		}
		if info.IsDir() {
			if w.skipDir(path) {
				return filepath.SkipDir
			}
			if addErr := w.addDir(path); addErr != nil {
				log.Printf("[watcher] cannot watch %s: %v", path, addErr)
				return nil
			}
			dirs++
			return nil
		}
		if !isHidden(info.Name()) && !isTempFile(info.Name()) &&
			scanner.MatchesLibrary(filepath.Ext(info.Name()), w.lib.Kind) {
			files++
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		w.state.Store(stateStopped)
		return err
	}

	w.wg.Add(1)
	go w.eventLoop()

	w.state.Store(stateWatching)
	log.Printf("[watcher] %s ready: %d dirs, %d files", w.lib.Name, dirs, files)
	if w.OnReady != nil {
		w.OnReady(dirs, files)
	}
	return nil
}

// Stop cancels pending debounce timers and closes the underlying watcher.
// Work already dispatched is left to finish on its own. Stop on a watcher
// that never started is a no-op.
func (w *LibraryWatcher) Stop() {
	if !w.state.CompareAndSwap(stateWatching, stateStopping) {
		return
	}
	w.debounce.CancelAll()
	close(w.done)
	w.fsw.Close()
	w.wg.Wait()
	w.state.Store(stateStopped)
	log.Printf("[watcher] %s stopped", w.lib.Name)
}

// Watching reports whether the watcher is in its active state.
func (w *LibraryWatcher) Watching() bool {
	return w.state.Load() == stateWatching
}

func (w *LibraryWatcher) Library() models.Library {
	return w.lib
}

func (w *LibraryWatcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] %s: %v", w.lib.Name, err)
		case <-w.done:
			return
		}
	}
}

func (w *LibraryWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	name := filepath.Base(path)
	if isHidden(name) || isTempFile(name) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(path)
		if err != nil {
			// Gone already; a Remove event will follow if it mattered.
			return
		}
		if info.IsDir() {
			w.handleDirAdded(path)
			return
		}
		w.scheduleIngest(path)

	case event.Op&fsnotify.Write != 0:
		w.scheduleIngest(path)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemoved(path)
	}
}

// handleDirAdded registers a newly created directory (and anything already
// inside it, since events may have raced the registration) and schedules
// collection resolution.
func (w *LibraryWatcher) handleDirAdded(path string) {
	if w.skipDir(path) {
		return
	}
	err := filepath.Walk(path, func(sub string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			if w.skipDir(sub) {
				return filepath.SkipDir
			}
			if addErr := w.addDir(sub); addErr != nil {
				log.Printf("[watcher] cannot watch %s: %v", sub, addErr)
			}
			return nil
		}
		if !isHidden(info.Name()) && !isTempFile(info.Name()) {
			w.scheduleIngest(sub)
		}
		return nil
	})
	if err != nil {
		log.Printf("[watcher] walk %s: %v", path, err)
	}

	rel, err := filepath.Rel(w.lib.Path, path)
	if err != nil || rel == "." {
		return
	}
	w.debounce.Schedule(DirEvent, path, func() {
		w.dispatch(func() {
			if _, resolveErr := w.resolver.Resolve(w.lib.ID, w.lib.Kind, rel); resolveErr != nil {
				log.Printf("[watcher] resolve %s: %v", rel, resolveErr)
			}
		})
	})
}

func (w *LibraryWatcher) scheduleIngest(path string) {
	if !scanner.MatchesLibrary(filepath.Ext(path), w.lib.Kind) {
		return
	}
	rel, err := filepath.Rel(w.lib.Path, path)
	if err != nil {
		return
	}
	w.debounce.Schedule(FileEvent, path, func() {
		w.dispatch(func() {
			if ingestErr := w.ingestor.Ingest(context.Background(), w.lib.ID, w.lib.Path, rel, w.lib.Kind); ingestErr != nil {
				log.Printf("[watcher] ingest %s: %v", rel, ingestErr)
			}
		})
	})
}

// handleRemoved dispatches file removals immediately. Directory removals are
// only logged; collections and their items stay cataloged until a deliberate
// library operation cleans them up.
func (w *LibraryWatcher) handleRemoved(path string) {
	w.mu.Lock()
	wasDir := w.watchedDirs[path]
	if wasDir {
		delete(w.watchedDirs, path)
	}
	w.mu.Unlock()

	if wasDir {
		log.Printf("[watcher] directory removed, keeping catalog entries: %s", path)
		return
	}
	if !scanner.MatchesLibrary(filepath.Ext(path), w.lib.Kind) {
		return
	}
	w.dispatch(func() {
		if err := w.ingestor.Remove(path); err != nil {
			log.Printf("[watcher] remove %s: %v", path, err)
		}
	})
}

// dispatch runs fn on a worker slot, bounded by the watcher's semaphore.
// During shutdown new work is dropped.
func (w *LibraryWatcher) dispatch(fn func()) {
	select {
	case w.sem <- struct{}{}:
	case <-w.done:
		return
	}
	go func() {
		defer func() { <-w.sem }()
		fn()
	}()
}

func (w *LibraryWatcher) addDir(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.mu.Lock()
	w.watchedDirs[path] = true
	w.mu.Unlock()
	return nil
}

// skipDir filters hidden directories and trickplay directories, which sit
// next to a video file of the same base name.
func (w *LibraryWatcher) skipDir(path string) bool {
	name := filepath.Base(path)
	if path != w.lib.Path && isHidden(name) {
		return true
	}
	for _, ext := range scanner.VideoExtensions() {
		if info, err := os.Stat(path + ext); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isTempFile filters in-progress download and copy artifacts.
func isTempFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tmp") ||
		strings.HasSuffix(lower, ".part") ||
		strings.HasSuffix(lower, ".partial") ||
		strings.HasSuffix(lower, ".crdownload")
}
