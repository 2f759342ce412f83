package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Category is a canonical article tag.
type Category struct {
	ID   uuid.UUID
	Name string
}

// Categories returns the full category vocabulary.
func (db *DB) Categories(ctx context.Context) ([]Category, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category

	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}

		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CreateCategory inserts a category name, returning the existing row's id when
// the name is already taken. The UNIQUE constraint on name makes this safe
// against concurrent creators.
func (db *DB) CreateCategory(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create category %q: %w", name, err)
	}

	return id, nil
}
