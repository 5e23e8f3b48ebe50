package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/shelfd/shelfd/internal/ffmpeg"
	"github.com/shelfd/shelfd/internal/jobs"
	"github.com/shelfd/shelfd/internal/models"
)

// CollectionStore is the slice of the catalog store the resolver needs.
// Create must surface natural-key conflicts as repository.ErrDuplicate.
type CollectionStore interface {
	Create(c *models.Collection) error
	FindChild(libraryID uuid.UUID, parentID *uuid.UUID, name string) (*models.Collection, error)
	AncestorNames(id uuid.UUID) ([]string, error)
}

// MediaStore is the slice of the catalog store the ingestor needs.
type MediaStore interface {
	Create(item *models.MediaItem) error
	GetByPath(path string) (*models.MediaItem, error)
	DeleteByPath(path string) (bool, error)
	CreateStreams(streams []models.MediaStream) error
}

// Prober extracts duration and stream layout from a media file. It may fail
// or time out; ingestion degrades rather than aborts.
type Prober interface {
	Probe(ctx context.Context, filePath string) (*ffmpeg.Result, error)
}

// ScrapeQueue delivers metadata-scrape jobs downstream, at-least-once.
type ScrapeQueue interface {
	EnqueueMetadataScrape(p jobs.MetadataScrapePayload) error
	EnqueueCollectionScrape(p jobs.CollectionScrapePayload) error
}
