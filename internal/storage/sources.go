package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Source is a configured feed endpoint.
type Source struct {
	ID                  uuid.UUID
	Name                string
	RSSURL              string
	SourceGroup         string
	DefaultImageURL     string
	Enabled             bool
	MaxArticlesPerFetch int
}

// UpsertSource inserts a source if no source with the same name exists.
// Existing sources are never overwritten. Returns true when a row was created.
func (db *DB) UpsertSource(ctx context.Context, src Source) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO sources (name, rss_url, source_group, default_image_url, enabled, max_articles_per_fetch)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING
	`, src.Name, src.RSSURL, src.SourceGroup, src.DefaultImageURL, src.Enabled, src.MaxArticlesPerFetch)
	if err != nil {
		return false, fmt.Errorf("upsert source %q: %w", src.Name, err)
	}

	return tag.RowsAffected() > 0, nil
}

// SourcesByGroup returns all sources keyed by their group label.
func (db *DB) SourcesByGroup(ctx context.Context) (map[string][]Source, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, rss_url, COALESCE(source_group, ''), COALESCE(default_image_url, ''),
		       enabled, max_articles_per_fetch
		FROM sources
		ORDER BY source_group, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]Source)

	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.RSSURL, &s.SourceGroup, &s.DefaultImageURL,
			&s.Enabled, &s.MaxArticlesPerFetch); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		group := s.SourceGroup
		if group == "" {
			group = "OTHER"
		}

		grouped[group] = append(grouped[group], s)
	}

	return grouped, rows.Err()
}

// SetSourceEnabled toggles a source on or off.
func (db *DB) SetSourceEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE sources SET enabled = $2 WHERE id = $1`, id, enabled); err != nil {
		return fmt.Errorf("set source enabled: %w", err)
	}

	return nil
}

// SetSourceMaxArticles updates the per-fetch article cap for a source.
func (db *DB) SetSourceMaxArticles(ctx context.Context, id uuid.UUID, maxArticles int) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE sources SET max_articles_per_fetch = $2 WHERE id = $1`, id, maxArticles); err != nil {
		return fmt.Errorf("set source max articles: %w", err)
	}

	return nil
}
