package ingest

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shelfd/shelfd/internal/jobs"
	"github.com/shelfd/shelfd/internal/models"
	"github.com/shelfd/shelfd/internal/repository"
	"github.com/shelfd/shelfd/internal/scanner"
)

// CollectionResolver maps relative directory paths onto the per-library
// collection tree, creating missing ancestors top-down. Resolution is
// idempotent; concurrent creates racing on the same segment are resolved by
// the store's natural-key constraint plus a re-read.
type CollectionResolver struct {
	collections CollectionStore
	queue       ScrapeQueue // may be nil; collection scrapes are best-effort
}

func NewCollectionResolver(collections CollectionStore, queue ScrapeQueue) *CollectionResolver {
	return &CollectionResolver{collections: collections, queue: queue}
}

// Resolve returns the id of the deepest collection for relDir, creating any
// missing ancestors. The empty or root path resolves to uuid.Nil.
func (r *CollectionResolver) Resolve(libraryID uuid.UUID, kind models.LibraryKind, relDir string) (uuid.UUID, error) {
	relDir = strings.Trim(filepath.ToSlash(relDir), "/")
	if relDir == "" || relDir == "." {
		return uuid.Nil, nil
	}

	var parentID *uuid.UUID
	var current uuid.UUID
	for depth, name := range strings.Split(relDir, "/") {
		c, err := r.resolveSegment(libraryID, kind, parentID, name, depth)
		if err != nil {
			return uuid.Nil, err
		}
		current = c.ID
		parentID = &c.ID
	}
	return current, nil
}

func (r *CollectionResolver) resolveSegment(libraryID uuid.UUID, kind models.LibraryKind, parentID *uuid.UUID, name string, depth int) (*models.Collection, error) {
	existing, err := r.collections.FindChild(libraryID, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("find collection %q: %w", name, err)
	}
	if existing != nil {
		return existing, nil
	}

	c := &models.Collection{
		ID:        uuid.New(),
		LibraryID: libraryID,
		ParentID:  parentID,
		Name:      name,
		Kind:      scanner.CollectionKindFor(kind, depth),
	}
	err = r.collections.Create(c)
	if err == nil {
		r.enqueueScrape(c)
		return c, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	// Lost a create race: the sibling exists now, re-read it.
	existing, findErr := r.collections.FindChild(libraryID, parentID, name)
	if findErr != nil {
		return nil, fmt.Errorf("re-read collection %q: %w", name, findErr)
	}
	if existing == nil {
		return nil, fmt.Errorf("collection %q: conflict on create but not found on re-read", name)
	}
	return existing, nil
}

// enqueueScrape requests metadata for newly created top-level collections of
// scrapeable kinds. Failures never affect resolution.
func (r *CollectionResolver) enqueueScrape(c *models.Collection) {
	if r.queue == nil {
		return
	}
	switch c.Kind {
	case models.CollectionShow, models.CollectionArtist, models.CollectionFilm:
	default:
		return
	}
	err := r.queue.EnqueueCollectionScrape(jobs.CollectionScrapePayload{
		CollectionID: c.ID,
		LibraryID:    c.LibraryID,
		Name:         c.Name,
		Kind:         c.Kind,
	})
	if err != nil {
		log.Printf("[ingest] collection scrape enqueue failed for %q: %v", c.Name, err)
	}
}
