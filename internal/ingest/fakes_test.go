package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfd/shelfd/internal/ffmpeg"
	"github.com/shelfd/shelfd/internal/jobs"
	"github.com/shelfd/shelfd/internal/models"
	"github.com/shelfd/shelfd/internal/repository"
)

// fakeCollections is an in-memory CollectionStore enforcing the same natural
// key as the real table.
type fakeCollections struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*models.Collection
	creates int

	// raceOnName simulates losing a create race: Create for this name inserts
	// a competing row under another id and reports a duplicate.
	raceOnName string
}

func newFakeCollections() *fakeCollections {
	return &fakeCollections{rows: make(map[uuid.UUID]*models.Collection)}
}

func (f *fakeCollections) find(libraryID uuid.UUID, parentID *uuid.UUID, name string) *models.Collection {
	for _, c := range f.rows {
		if c.LibraryID != libraryID || c.Name != name {
			continue
		}
		if (c.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID == nil || *c.ParentID == *parentID {
			return c
		}
	}
	return nil
}

func (f *fakeCollections) Create(c *models.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if c.Name == f.raceOnName {
		f.raceOnName = ""
		competitor := *c
		competitor.ID = uuid.New()
		f.rows[competitor.ID] = &competitor
		return fmt.Errorf("collection %q: %w", c.Name, repository.ErrDuplicate)
	}
	if f.find(c.LibraryID, c.ParentID, c.Name) != nil {
		return fmt.Errorf("collection %q: %w", c.Name, repository.ErrDuplicate)
	}
	clone := *c
	f.rows[clone.ID] = &clone
	return nil
}

func (f *fakeCollections) FindChild(libraryID uuid.UUID, parentID *uuid.UUID, name string) (*models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(libraryID, parentID, name)
	if c == nil {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCollections) AncestorNames(id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for c := f.rows[id]; c != nil; {
		names = append([]string{c.Name}, names...)
		if c.ParentID == nil {
			break
		}
		c = f.rows[*c.ParentID]
	}
	return names, nil
}

// fakeMedia is an in-memory MediaStore keyed by file path.
type fakeMedia struct {
	mu      sync.Mutex
	byPath  map[string]*models.MediaItem
	streams []models.MediaStream
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{byPath: make(map[string]*models.MediaItem)}
}

func (f *fakeMedia) Create(item *models.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byPath[item.FilePath]; ok {
		return fmt.Errorf("media %q: %w", item.FilePath, repository.ErrDuplicate)
	}
	clone := *item
	f.byPath[item.FilePath] = &clone
	return nil
}

func (f *fakeMedia) GetByPath(path string) (*models.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.byPath[path]
	if !ok {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (f *fakeMedia) DeleteByPath(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byPath[path]; !ok {
		return false, nil
	}
	delete(f.byPath, path)
	return true, nil
}

func (f *fakeMedia) CreateStreams(streams []models.MediaStream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams = append(f.streams, streams...)
	return nil
}

// fakeProber returns a canned result or error.
type fakeProber struct {
	result *ffmpeg.Result
	err    error
	calls  int
}

func (f *fakeProber) Probe(_ context.Context, _ string) (*ffmpeg.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeQueue records enqueued payloads and can fail on demand.
type fakeQueue struct {
	mu          sync.Mutex
	media       []jobs.MetadataScrapePayload
	collections []jobs.CollectionScrapePayload
	mediaErr    error
	collErr     error
}

func (f *fakeQueue) EnqueueMetadataScrape(p jobs.MetadataScrapePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.media = append(f.media, p)
	return nil
}

func (f *fakeQueue) EnqueueCollectionScrape(p jobs.CollectionScrapePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collErr != nil {
		return f.collErr
	}
	f.collections = append(f.collections, p)
	return nil
}
