package aggregator

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/technews/aggregator/internal/storage"
)

// sourcesFile is the on-disk source catalog, grouped by topic.
type sourcesFile struct {
	Groups map[string][]sourceEntry `yaml:"groups"`
}

type sourceEntry struct {
	Name            string `yaml:"name"`
	RSSURL          string `yaml:"rss_url"`
	DefaultImageURL string `yaml:"default_image_url"`
	MaxArticles     int    `yaml:"max_articles_per_fetch"`
	Disabled        bool   `yaml:"disabled"`
}

// SyncResult reports the outcome of a catalog sync.
type SyncResult struct {
	Created int
	Skipped int
}

// SyncSources loads the YAML source catalog and inserts any sources the
// database does not know yet. Existing sources keep their stored settings.
func (a *Aggregator) SyncSources(ctx context.Context, path string, defaultMax int) (SyncResult, error) {
	var res SyncResult

	raw, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return res, fmt.Errorf("parse sources file: %w", err)
	}

	for group, entries := range file.Groups {
		for _, entry := range entries {
			if entry.Name == "" || entry.RSSURL == "" {
				a.logger.Warn().Str("group", group).Msg("skipping catalog entry without name or rss_url")
				res.Skipped++

				continue
			}

			maxArticles := entry.MaxArticles
			if maxArticles <= 0 {
				maxArticles = defaultMax
			}

			created, err := a.store.UpsertSource(ctx, storage.Source{
				Name:                entry.Name,
				RSSURL:              entry.RSSURL,
				SourceGroup:         group,
				DefaultImageURL:     entry.DefaultImageURL,
				Enabled:             !entry.Disabled,
				MaxArticlesPerFetch: maxArticles,
			})
			if err != nil {
				return res, err
			}

			if created {
				a.logger.Info().Str("source", entry.Name).Str("group", group).Msg("source added")
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}

	return res, nil
}
