package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/shelfd/shelfd/internal/ffmpeg"
	"github.com/shelfd/shelfd/internal/jobs"
	"github.com/shelfd/shelfd/internal/models"
	"github.com/shelfd/shelfd/internal/repository"
	"github.com/shelfd/shelfd/internal/scanner"
)

// MediaIngestor turns a settled file on disk into a cataloged media item:
// resolve its collection, probe it, persist item and streams, enqueue a
// metadata scrape. Ingestion is idempotent on file path.
type MediaIngestor struct {
	media       MediaStore
	collections CollectionStore
	resolver    *CollectionResolver
	prober      Prober
	queue       ScrapeQueue
	probeLimit  *rate.Limiter
}

func NewMediaIngestor(media MediaStore, collections CollectionStore, resolver *CollectionResolver, prober Prober, queue ScrapeQueue, probesPerSecond float64) *MediaIngestor {
	return &MediaIngestor{
		media:       media,
		collections: collections,
		resolver:    resolver,
		prober:      prober,
		queue:       queue,
		probeLimit:  rate.NewLimiter(rate.Limit(probesPerSecond), 1),
	}
}

// Ingest catalogs the file at relPath under libraryRoot. A path that is
// already cataloged is a no-op. Probe failures degrade to a duration of zero
// with no streams; enqueue failures are logged and never fail the ingest.
func (in *MediaIngestor) Ingest(ctx context.Context, libraryID uuid.UUID, libraryRoot, relPath string, kind models.LibraryKind) error {
	absPath := filepath.Join(libraryRoot, relPath)
	ext := filepath.Ext(absPath)
	baseName := strings.TrimSuffix(filepath.Base(absPath), ext)

	existing, err := in.media.GetByPath(absPath)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", absPath, err)
	}
	if existing != nil {
		log.Printf("[ingest] already cataloged, skipping: %s", absPath)
		return nil
	}

	collectionID, err := in.resolver.Resolve(libraryID, kind, filepath.Dir(relPath))
	if err != nil {
		return fmt.Errorf("resolve collection for %s: %w", relPath, err)
	}

	mediaKind := scanner.MediaKindFor(ext)
	var trickplayPath *string
	if mediaKind == models.MediaVideo {
		sibling := filepath.Join(filepath.Dir(absPath), baseName)
		if info, statErr := os.Stat(sibling); statErr == nil && info.IsDir() {
			trickplayPath = &sibling
		}
	}

	result := in.probe(ctx, absPath)

	item := &models.MediaItem{
		ID:            uuid.New(),
		LibraryID:     libraryID,
		Kind:          mediaKind,
		FilePath:      absPath,
		DisplayName:   baseName,
		DurationSecs:  result.Duration,
		TrickplayPath: trickplayPath,
	}
	if collectionID != uuid.Nil {
		item.CollectionID = &collectionID
	}
	if err := in.media.Create(item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent ingest of the same path won the insert.
			log.Printf("[ingest] concurrent ingest of %s, skipping", absPath)
			return nil
		}
		return fmt.Errorf("create media item %s: %w", absPath, err)
	}
	if len(result.Streams) > 0 {
		if err := in.media.CreateStreams(streamRows(item.ID, result.Streams)); err != nil {
			log.Printf("[ingest] stream persist failed for %s: %v", absPath, err)
		}
	}

	payload := in.scrapeHints(item, baseName, collectionID)
	if err := in.queue.EnqueueMetadataScrape(payload); err != nil {
		log.Printf("[ingest] metadata scrape enqueue failed for %s: %v", absPath, err)
	}
	log.Printf("[ingest] cataloged %s (%s)", absPath, mediaKind)
	return nil
}

// Remove drops the cataloged item for absPath if one exists. Streams go with
// it; the collection tree is never pruned here.
func (in *MediaIngestor) Remove(absPath string) error {
	deleted, err := in.media.DeleteByPath(absPath)
	if err != nil {
		return fmt.Errorf("delete %s: %w", absPath, err)
	}
	if deleted {
		log.Printf("[ingest] removed %s", absPath)
	}
	return nil
}

// probe runs ffprobe behind the rate limiter. Any failure, including limiter
// wait cancellation, yields an empty result so the item is still cataloged.
func (in *MediaIngestor) probe(ctx context.Context, absPath string) *ffmpeg.Result {
	if err := in.probeLimit.Wait(ctx); err != nil {
		log.Printf("[ingest] probe wait aborted for %s: %v", absPath, err)
		return &ffmpeg.Result{}
	}
	result, err := in.prober.Probe(ctx, absPath)
	if err != nil {
		log.Printf("[ingest] probe failed for %s: %v", absPath, err)
		return &ffmpeg.Result{}
	}
	return result
}

// scrapeHints derives scraper hints from the filename and, when available,
// the collection ancestry. Folder names tend to be cleaner than file names,
// so ancestry wins for show and movie titles.
func (in *MediaIngestor) scrapeHints(item *models.MediaItem, baseName string, collectionID uuid.UUID) jobs.MetadataScrapePayload {
	payload := jobs.MetadataScrapePayload{
		MediaID: item.ID,
		Title:   baseName,
		Kind:    item.Kind,
	}
	if item.Kind != models.MediaVideo {
		return payload
	}

	var ancestors []string
	if collectionID != uuid.Nil {
		names, err := in.collections.AncestorNames(collectionID)
		if err != nil {
			log.Printf("[ingest] ancestor lookup failed for %s: %v", item.FilePath, err)
		} else {
			ancestors = names
		}
	}

	if ep, ok := scanner.ParseEpisode(baseName); ok {
		payload.Season = ep.Season
		payload.Episode = ep.Episode
		payload.ShowName = ep.Show
		if name := scanner.ShowNameFromAncestors(ancestors); name != "" {
			payload.ShowName = name
		}
		if ep.Title != "" {
			payload.Title = ep.Title
		}
		return payload
	}

	movie := scanner.ParseMovie(baseName)
	if movie.Title != "" {
		payload.Title = movie.Title
	}
	if len(ancestors) > 0 {
		payload.Title = ancestors[len(ancestors)-1]
	}
	payload.Year = movie.Year
	return payload
}

func streamRows(mediaItemID uuid.UUID, streams []ffmpeg.Stream) []models.MediaStream {
	rows := make([]models.MediaStream, 0, len(streams))
	for _, s := range streams {
		rows = append(rows, models.MediaStream{
			ID:          uuid.New(),
			MediaItemID: mediaItemID,
			Index:       s.Index,
			Type:        s.Type,
			Codec:       s.Codec,
			Language:    s.Language,
			Title:       s.Title,
			IsDefault:   s.Default,
			IsForced:    s.Forced,
			Channels:    s.Channels,
			SampleRate:  s.SampleRate,
			BitRate:     s.BitRate,
			Width:       s.Width,
			Height:      s.Height,
			FrameRate:   s.FrameRate,
		})
	}
	return rows
}
