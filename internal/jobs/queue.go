package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shelfd/shelfd/internal/models"
)

const (
	TaskMetadataScrape   = "scrape:media"
	TaskCollectionScrape = "scrape:collection"
)

// MetadataScrapePayload carries a freshly ingested item and its
// filename-derived hints to the scraper workers. Consumers are idempotent;
// delivery is at-least-once.
type MetadataScrapePayload struct {
	MediaID  uuid.UUID        `json:"media_id"`
	Title    string           `json:"title"`
	Kind     models.MediaKind `json:"kind"`
	Year     int              `json:"year,omitempty"`
	Season   int              `json:"season,omitempty"`
	Episode  int              `json:"episode,omitempty"`
	ShowName string           `json:"show_name,omitempty"`
}

// CollectionScrapePayload requests metadata for a newly created collection.
type CollectionScrapePayload struct {
	CollectionID uuid.UUID             `json:"collection_id"`
	LibraryID    uuid.UUID             `json:"library_id"`
	Name         string                `json:"name"`
	Kind         models.CollectionKind `json:"kind"`
}

// Queue is the enqueue-side client for the scrape job queue. The workers
// that consume these tasks live in a separate process.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisAddr string) *Queue {
	return &Queue{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (q *Queue) EnqueueMetadataScrape(p MetadataScrapePayload) error {
	return q.enqueueUnique(TaskMetadataScrape, p, TaskMetadataScrape+":"+p.MediaID.String())
}

func (q *Queue) EnqueueCollectionScrape(p CollectionScrapePayload) error {
	return q.enqueueUnique(TaskCollectionScrape, p, TaskCollectionScrape+":"+p.CollectionID.String())
}

// enqueueUnique enqueues a task with a deterministic TaskID so duplicate
// debounced ingests cannot double-enqueue. A task ID conflict means the job
// is already pending or active and is skipped silently.
func (q *Queue) enqueueUnique(taskType string, payload interface{}, uniqueID string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data, asynq.TaskID(uniqueID))
	if _, err := q.client.Enqueue(task); err != nil {
		if isTaskConflict(err) {
			log.Printf("[jobs] task %s already queued, skipping", uniqueID)
			return nil
		}
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// isTaskConflict checks whether the error indicates a task ID conflict,
// using errors.Is for unwrapped sentinel values and a string fallback.
func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

func (q *Queue) Close() error {
	return q.client.Close()
}
