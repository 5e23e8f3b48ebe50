package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shelfd/shelfd/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

const libraryColumns = `id, name, kind, path, watch_enabled, created_at, updated_at`

func scanLibrary(row interface{ Scan(dest ...interface{}) error }) (*models.Library, error) {
	lib := &models.Library{}
	err := row.Scan(&lib.ID, &lib.Name, &lib.Kind, &lib.Path,
		&lib.WatchEnabled, &lib.CreatedAt, &lib.UpdatedAt)
	return lib, err
}

func (r *LibraryRepository) Create(library *models.Library) error {
	query := `
		INSERT INTO libraries (id, name, kind, path, watch_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(query, library.ID, library.Name, library.Kind,
		library.Path, library.WatchEnabled).
		Scan(&library.CreatedAt, &library.UpdatedAt)
}

func (r *LibraryRepository) GetByID(id uuid.UUID) (*models.Library, error) {
	query := `SELECT ` + libraryColumns + ` FROM libraries WHERE id = $1`
	lib, err := scanLibrary(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *LibraryRepository) List() ([]*models.Library, error) {
	return r.list(`SELECT ` + libraryColumns + ` FROM libraries ORDER BY created_at`)
}

// ListWatchEnabled returns the libraries the watcher registry should hold
// subscriptions for.
func (r *LibraryRepository) ListWatchEnabled() ([]*models.Library, error) {
	return r.list(`SELECT ` + libraryColumns + ` FROM libraries WHERE watch_enabled = true ORDER BY created_at`)
}

func (r *LibraryRepository) list(query string) ([]*models.Library, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	libraries := []*models.Library{}
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}
	return libraries, rows.Err()
}

func (r *LibraryRepository) SetWatchEnabled(id uuid.UUID, enabled bool) error {
	result, err := r.db.Exec(
		`UPDATE libraries SET watch_enabled = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		enabled, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("library not found")
	}
	return nil
}

func (r *LibraryRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM libraries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("library not found")
	}
	return nil
}
