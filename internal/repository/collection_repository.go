package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shelfd/shelfd/internal/db"
	"github.com/shelfd/shelfd/internal/models"
)

type CollectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

const collectionColumns = `id, library_id, parent_id, name, kind, created_at`

func scanCollection(row interface{ Scan(dest ...interface{}) error }) (*models.Collection, error) {
	c := &models.Collection{}
	err := row.Scan(&c.ID, &c.LibraryID, &c.ParentID, &c.Name, &c.Kind, &c.CreatedAt)
	return c, err
}

// Create inserts a collection. A natural-key collision surfaces as
// ErrDuplicate so concurrent resolvers can re-read instead of failing.
func (r *CollectionRepository) Create(c *models.Collection) error {
	query := `
		INSERT INTO collections (id, library_id, parent_id, name, kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.db.QueryRow(query, c.ID, c.LibraryID, c.ParentID, c.Name, c.Kind).
		Scan(&c.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("collection %q: %w", c.Name, ErrDuplicate)
		}
		return err
	}
	return nil
}

// FindChild looks a collection up by its natural key. parentID == nil selects
// among root collections. Returns (nil, nil) when no such sibling exists.
func (r *CollectionRepository) FindChild(libraryID uuid.UUID, parentID *uuid.UUID, name string) (*models.Collection, error) {
	var row *sql.Row
	if parentID == nil {
		query := `SELECT ` + collectionColumns + ` FROM collections
			WHERE library_id = $1 AND parent_id IS NULL AND name = $2`
		row = r.db.QueryRow(query, libraryID, name)
	} else {
		query := `SELECT ` + collectionColumns + ` FROM collections
			WHERE library_id = $1 AND parent_id = $2 AND name = $3`
		row = r.db.QueryRow(query, libraryID, *parentID, name)
	}
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AncestorNames returns the names on the path from the library root to the
// given collection, root first and the collection itself last.
func (r *CollectionRepository) AncestorNames(id uuid.UUID) ([]string, error) {
	query := `
		WITH RECURSIVE ancestry AS (
			SELECT id, parent_id, name, 0 AS depth
			FROM collections WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, c.name, a.depth + 1
			FROM collections c JOIN ancestry a ON c.id = a.parent_id
		)
		SELECT name FROM ancestry ORDER BY depth DESC`
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
