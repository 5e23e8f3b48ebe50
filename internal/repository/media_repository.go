package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shelfd/shelfd/internal/db"
	"github.com/shelfd/shelfd/internal/models"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, library_id, collection_id, kind, file_path, display_name,
	duration_seconds, trickplay_path, created_at`

func scanMediaItem(row interface{ Scan(dest ...interface{}) error }) (*models.MediaItem, error) {
	item := &models.MediaItem{}
	err := row.Scan(&item.ID, &item.LibraryID, &item.CollectionID, &item.Kind,
		&item.FilePath, &item.DisplayName, &item.DurationSecs,
		&item.TrickplayPath, &item.CreatedAt)
	return item, err
}

func (r *MediaRepository) Create(item *models.MediaItem) error {
	query := `
		INSERT INTO media_items (id, library_id, collection_id, kind, file_path,
			display_name, duration_seconds, trickplay_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := r.db.QueryRow(query, item.ID, item.LibraryID, item.CollectionID,
		item.Kind, item.FilePath, item.DisplayName, item.DurationSecs,
		item.TrickplayPath).
		Scan(&item.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("media %q: %w", item.FilePath, ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetByPath returns the media item cataloged at the absolute path, or
// (nil, nil) when the path is not cataloged.
func (r *MediaRepository) GetByPath(filePath string) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE file_path = $1`
	item, err := scanMediaItem(r.db.QueryRow(query, filePath))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteByPath removes the media item at the path. Streams cascade at the
// storage layer. Returns false when no row matched.
func (r *MediaRepository) DeleteByPath(filePath string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM media_items WHERE file_path = $1`, filePath)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateStreams bulk-inserts the stream rows for a freshly created item.
func (r *MediaRepository) CreateStreams(streams []models.MediaStream) error {
	if len(streams) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO media_streams (id, media_item_id, stream_index, stream_type,
			codec, language, title, is_default, is_forced, channels, sample_rate,
			bit_rate, width, height, frame_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range streams {
		id := s.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := stmt.Exec(id, s.MediaItemID, s.Index, s.Type, s.Codec,
			s.Language, s.Title, s.IsDefault, s.IsForced, s.Channels,
			s.SampleRate, s.BitRate, s.Width, s.Height, s.FrameRate); err != nil {
			return err
		}
	}
	return tx.Commit()
}
