package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfd/shelfd/internal/models"
)

type captureIngestor struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (c *captureIngestor) Ingest(_ context.Context, _ uuid.UUID, _, relPath string, _ models.LibraryKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingested = append(c.ingested, filepath.ToSlash(relPath))
	return nil
}

func (c *captureIngestor) Remove(absPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, absPath)
	return nil
}

func (c *captureIngestor) snapshot() ([]string, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ingested...), append([]string(nil), c.removed...)
}

type captureResolver struct {
	mu   sync.Mutex
	dirs []string
}

func (c *captureResolver) Resolve(_ uuid.UUID, _ models.LibraryKind, relDir string) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs = append(c.dirs, filepath.ToSlash(relDir))
	return uuid.New(), nil
}

func testLibrary(t *testing.T, kind models.LibraryKind) models.Library {
	t.Helper()
	return models.Library{
		ID:           uuid.New(),
		Name:         "test",
		Kind:         kind,
		Path:         t.TempDir(),
		WatchEnabled: true,
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWatcherReportsInitialCounts(t *testing.T) {
	lib := testLibrary(t, models.LibraryTelevision)
	writeFile(t, filepath.Join(lib.Path, "Show", "Season 1", "Show.S01E01.mkv"))
	writeFile(t, filepath.Join(lib.Path, "Show", "Season 1", "notes.txt"))
	writeFile(t, filepath.Join(lib.Path, "Show", "cover.tmp"))

	var dirs, files int
	w := NewLibraryWatcher(lib, &captureIngestor{}, &captureResolver{}, 20*time.Millisecond, 2)
	w.OnReady = func(d, f int) { dirs, files = d, f }

	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Equal(t, 3, dirs, "root, Show, Season 1")
	assert.Equal(t, 1, files, "only matching media files count")
	assert.True(t, w.Watching())
}

func TestWatcherIngestsNewFileAfterSettling(t *testing.T) {
	lib := testLibrary(t, models.LibraryFilm)
	ing := &captureIngestor{}
	w := NewLibraryWatcher(lib, ing, &captureResolver{}, 20*time.Millisecond, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, filepath.Join(lib.Path, "Inception.2010.mkv"))

	require.Eventually(t, func() bool {
		got, _ := ing.snapshot()
		return len(got) == 1 && got[0] == "Inception.2010.mkv"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherIgnoresTempAndHiddenAndForeignFiles(t *testing.T) {
	lib := testLibrary(t, models.LibraryFilm)
	ing := &captureIngestor{}
	w := NewLibraryWatcher(lib, ing, &captureResolver{}, 20*time.Millisecond, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, filepath.Join(lib.Path, "movie.mkv.part"))
	writeFile(t, filepath.Join(lib.Path, ".hidden.mkv"))
	writeFile(t, filepath.Join(lib.Path, "notes.txt"))
	writeFile(t, filepath.Join(lib.Path, "song.mp3")) // audio in a film library

	time.Sleep(300 * time.Millisecond)
	got, _ := ing.snapshot()
	assert.Empty(t, got)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	lib := testLibrary(t, models.LibraryTelevision)
	ing := &captureIngestor{}
	res := &captureResolver{}
	w := NewLibraryWatcher(lib, ing, res, 20*time.Millisecond, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	// New show dir, then a file inside it once the dir is being watched.
	showDir := filepath.Join(lib.Path, "New Show")
	require.NoError(t, os.Mkdir(showDir, 0o755))

	require.Eventually(t, func() bool {
		res.mu.Lock()
		defer res.mu.Unlock()
		return len(res.dirs) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	writeFile(t, filepath.Join(showDir, "New.Show.S01E01.mkv"))
	require.Eventually(t, func() bool {
		got, _ := ing.snapshot()
		return len(got) == 1 && got[0] == "New Show/New.Show.S01E01.mkv"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherDispatchesRemovalImmediately(t *testing.T) {
	lib := testLibrary(t, models.LibraryFilm)
	path := filepath.Join(lib.Path, "gone.mkv")
	writeFile(t, path)

	ing := &captureIngestor{}
	w := NewLibraryWatcher(lib, ing, &captureResolver{}, time.Hour, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	// The debounce window is an hour; removals must not wait for it.
	require.Eventually(t, func() bool {
		_, removed := ing.snapshot()
		return len(removed) == 1 && removed[0] == path
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherDirectoryRemovalLeavesCollectionsAlone(t *testing.T) {
	lib := testLibrary(t, models.LibraryTelevision)
	showDir := filepath.Join(lib.Path, "Show")
	epPath := filepath.Join(showDir, "Show.S01E01.mkv")
	writeFile(t, epPath)

	ing := &captureIngestor{}
	w := NewLibraryWatcher(lib, ing, &captureResolver{}, 20*time.Millisecond, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.RemoveAll(showDir))

	// Wait until the directory unlink itself has been handled.
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.watchedDirs[showDir]
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, removed := ing.snapshot()
		return len(removed) == 1
	}, 3*time.Second, 20*time.Millisecond)

	// The cataloged file goes; the directory unlink never cascades.
	_, removed := ing.snapshot()
	assert.Equal(t, []string{epPath}, removed)
}

func TestWatcherEmptyDirectoryRemovalIsLoggedOnly(t *testing.T) {
	lib := testLibrary(t, models.LibraryTelevision)
	showDir := filepath.Join(lib.Path, "Empty Show")
	require.NoError(t, os.Mkdir(showDir, 0o755))

	ing := &captureIngestor{}
	w := NewLibraryWatcher(lib, ing, &captureResolver{}, 20*time.Millisecond, 2)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(showDir))

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.watchedDirs[showDir]
	}, 3*time.Second, 20*time.Millisecond)

	_, removed := ing.snapshot()
	assert.Empty(t, removed, "a directory unlink must not delete anything")
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	lib := testLibrary(t, models.LibraryFilm)
	w := NewLibraryWatcher(lib, &captureIngestor{}, &captureResolver{}, 20*time.Millisecond, 2)

	w.Stop() // never started
	require.NoError(t, w.Start())
	require.NoError(t, w.Start()) // no-op
	w.Stop()
	w.Stop() // no-op
	assert.False(t, w.Watching())
}

func TestSkipDirIgnoresTrickplaySiblings(t *testing.T) {
	lib := testLibrary(t, models.LibraryFilm)
	writeFile(t, filepath.Join(lib.Path, "Movie.mkv"))
	require.NoError(t, os.Mkdir(filepath.Join(lib.Path, "Movie"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(lib.Path, "Extras"), 0o755))

	w := NewLibraryWatcher(lib, &captureIngestor{}, &captureResolver{}, 20*time.Millisecond, 2)
	assert.True(t, w.skipDir(filepath.Join(lib.Path, "Movie")))
	assert.False(t, w.skipDir(filepath.Join(lib.Path, "Extras")))
	assert.True(t, w.skipDir(filepath.Join(lib.Path, ".cache")))
	assert.False(t, w.skipDir(lib.Path), "library root itself is never skipped")
}
