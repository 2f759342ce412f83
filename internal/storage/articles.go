package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArticleRecord is the persisted form of a classified article.
type ArticleRecord struct {
	ID             uuid.UUID
	Title          string
	Description    string
	URL            string
	ImageURL       string
	SourceID       uuid.UUID
	PublishedDate  *time.Time
	RelevanceScore int
	Tone           string
	Filtered       bool
	FilterReason   string
}

// ArticleCounts aggregates corpus totals for the run summary.
type ArticleCounts struct {
	Total    int
	Filtered int
	Active   int
}

// CreateArticle inserts an article and fills in its assigned id.
func (db *DB) CreateArticle(ctx context.Context, a *ArticleRecord) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO articles (title, description, url, image_url, source_id, published_date,
		                      relevance_score, tone, filtered, filter_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, a.Title, a.Description, a.URL, a.ImageURL, a.SourceID, a.PublishedDate,
		a.RelevanceScore, a.Tone, a.Filtered, a.FilterReason).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create article: %w", err)
	}

	return nil
}

// ArticleExists reports whether an article with the given normalized URL is
// already stored.
func (db *DB) ArticleExists(ctx context.Context, url string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check article exists: %w", err)
	}

	return exists, nil
}

// ExistingURLs returns every stored article URL, used to seed the dedup set
// once per run instead of checking URLs one at a time.
func (db *DB) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.Pool.Query(ctx, `SELECT url FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("list article urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan article url: %w", err)
		}

		urls[url] = struct{}{}
	}

	return urls, rows.Err()
}

// LinkArticleCategories creates article-category associations. Every category
// id must already exist; duplicate links are ignored.
func (db *DB) LinkArticleCategories(ctx context.Context, articleID uuid.UUID, categoryIDs []uuid.UUID) error {
	for _, catID := range categoryIDs {
		if _, err := db.Pool.Exec(ctx, `
			INSERT INTO article_categories (article_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, articleID, catID); err != nil {
			return fmt.Errorf("link article %s to category %s: %w", articleID, catID, err)
		}
	}

	return nil
}

// ArticleCounts returns corpus totals.
func (db *DB) ArticleCounts(ctx context.Context) (ArticleCounts, error) {
	var counts ArticleCounts

	err := db.Pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE filtered)
		FROM articles
	`).Scan(&counts.Total, &counts.Filtered)
	if err != nil {
		return ArticleCounts{}, fmt.Errorf("count articles: %w", err)
	}

	counts.Active = counts.Total - counts.Filtered

	return counts, nil
}
