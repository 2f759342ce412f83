// Package aggregator orchestrates a fetch-classify-store run over all
// configured sources.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/technews/aggregator/internal/analyzer"
	"github.com/technews/aggregator/internal/feed"
	"github.com/technews/aggregator/internal/observability"
	"github.com/technews/aggregator/internal/storage"
)

type store interface {
	SourcesByGroup(ctx context.Context) (map[string][]storage.Source, error)
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)
	CreateArticle(ctx context.Context, a *storage.ArticleRecord) error
	LinkArticleCategories(ctx context.Context, articleID uuid.UUID, categoryIDs []uuid.UUID) error
	UpsertSource(ctx context.Context, src storage.Source) (bool, error)
	ArticleCounts(ctx context.Context) (storage.ArticleCounts, error)
}

type fetcher interface {
	Fetch(ctx context.Context, req feed.FetchRequest) ([]feed.Article, error)
}

type classifier interface {
	AnalyzeBatch(ctx context.Context, inputs []analyzer.Input, delay time.Duration) []analyzer.Verdict
}

type registry interface {
	Refresh(ctx context.Context) error
	Resolve(ctx context.Context, raw []string) ([]uuid.UUID, int)
	Names() []string
}

// Results accumulates run counters. Counters survive early cancellation.
type Results struct {
	SourcesProcessed int
	ArticlesFound    int
	Analyzed         int
	Stored           int
	Filtered         int
	NewCategories    int
	Errors           int
}

// Options tunes one run.
type Options struct {
	// MaxArticles overrides every source's per-fetch cap when > 0.
	MaxArticles int
	// ClassifyDelay paces classification calls within a source batch.
	ClassifyDelay time.Duration
}

type Aggregator struct {
	store      store
	fetcher    fetcher
	classifier classifier
	registry   registry
	opts       Options
	logger     *zerolog.Logger
}

func New(s store, f fetcher, c classifier, r registry, opts Options, logger *zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:      s,
		fetcher:    f,
		classifier: c,
		registry:   r,
		opts:       opts,
		logger:     logger,
	}
}

// Run processes every enabled source in the selected groups, one source at a
// time. Per-source and per-article failures are counted and skipped, never
// fatal. Cancellation stops before the next source and returns the counters
// accumulated so far.
func (a *Aggregator) Run(ctx context.Context, groups []string) (Results, error) {
	var res Results

	known, err := a.store.ExistingURLs(ctx)
	if err != nil {
		return res, fmt.Errorf("load existing urls: %w", err)
	}

	sources, err := a.selectSources(ctx, groups)
	if err != nil {
		return res, err
	}

	a.logger.Info().Int("sources", len(sources)).Int("known_urls", len(known)).Msg("run starting")

	for _, src := range sources {
		if ctx.Err() != nil {
			a.logger.Warn().Msg("run cancelled, returning partial results")
			return res, ctx.Err()
		}

		a.processSource(ctx, src, known, &res)
		res.SourcesProcessed++

		if err := a.registry.Refresh(ctx); err != nil {
			a.logger.Error().Err(err).Msg("category registry refresh failed")
			res.Errors++
		}
	}

	return res, nil
}

// selectSources flattens the grouped source list into processing order. Group
// names are matched case-sensitively; an empty selection means all groups.
func (a *Aggregator) selectSources(ctx context.Context, groups []string) ([]storage.Source, error) {
	grouped, err := a.store.SourcesByGroup(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	wanted := map[string]struct{}{}
	for _, g := range groups {
		wanted[g] = struct{}{}
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}

	sort.Strings(names)

	var sources []storage.Source

	for _, name := range names {
		if len(wanted) > 0 {
			if _, ok := wanted[name]; !ok {
				continue
			}
		}

		for _, src := range grouped[name] {
			if src.Enabled {
				sources = append(sources, src)
			}
		}
	}

	return sources, nil
}

func (a *Aggregator) processSource(ctx context.Context, src storage.Source, known map[string]struct{}, res *Results) {
	maxArticles := src.MaxArticlesPerFetch
	if a.opts.MaxArticles > 0 {
		maxArticles = a.opts.MaxArticles
	}

	start := time.Now()

	articles, err := a.fetcher.Fetch(ctx, feed.FetchRequest{
		URL:             src.RSSURL,
		MaxArticles:     maxArticles,
		SourceName:      src.Name,
		DefaultImageURL: src.DefaultImageURL,
		KnownURLs:       known,
	})

	observability.FetchDuration.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		a.logger.Error().Err(err).Str("source", src.Name).Msg("fetch failed")
		observability.SourceErrors.WithLabelValues(src.Name, "fetch").Inc()
		res.Errors++

		return
	}

	if len(articles) == 0 {
		a.logger.Debug().Str("source", src.Name).Msg("no new articles")
		return
	}

	res.ArticlesFound += len(articles)
	observability.ArticlesFound.WithLabelValues(src.Name).Add(float64(len(articles)))

	knownCategories := a.registry.Names()

	inputs := make([]analyzer.Input, len(articles))
	for i, art := range articles {
		inputs[i] = analyzer.Input{
			Title:           art.Title,
			Description:     art.Description,
			SourceName:      src.Name,
			KnownCategories: knownCategories,
		}
	}

	verdicts := a.classifier.AnalyzeBatch(ctx, inputs, a.opts.ClassifyDelay)

	res.Analyzed += len(verdicts)
	observability.ArticlesAnalyzed.Add(float64(len(verdicts)))

	for i, art := range articles {
		a.storeArticle(ctx, src, art, verdicts[i], known, res)
	}

	a.logger.Info().
		Str("source", src.Name).
		Int("found", len(articles)).
		Msg("source processed")
}

func (a *Aggregator) storeArticle(ctx context.Context, src storage.Source, art feed.Article, v analyzer.Verdict, known map[string]struct{}, res *Results) {
	if v.Err != "" {
		observability.ClassificationFallbacks.Inc()
		a.logger.Warn().Str("url", art.URL).Str("error", v.Err).Msg("article stored with fallback verdict")
	}

	record := storage.ArticleRecord{
		Title:          art.Title,
		Description:    art.Description,
		URL:            art.URL,
		ImageURL:       art.ImageURL,
		SourceID:       src.ID,
		PublishedDate:  art.PublishedDate,
		RelevanceScore: v.RelevanceScore,
		Tone:           v.Tone,
		Filtered:       v.Filtered,
		FilterReason:   v.FilterReason,
	}

	if err := a.store.CreateArticle(ctx, &record); err != nil {
		a.logger.Error().Err(err).Str("url", art.URL).Msg("store article failed")
		observability.SourceErrors.WithLabelValues(src.Name, "store").Inc()
		res.Errors++

		return
	}

	known[art.URL] = struct{}{}
	res.Stored++
	observability.ArticlesStored.Inc()

	if v.Filtered {
		res.Filtered++
		observability.ArticlesFiltered.WithLabelValues(src.Name).Inc()

		a.logger.Info().
			Str("url", art.URL).
			Str("reason", v.FilterReason).
			Msg("article filtered")

		return
	}

	ids, created := a.registry.Resolve(ctx, v.Categories)

	res.NewCategories += created
	observability.CategoriesCreated.Add(float64(created))

	if len(ids) == 0 {
		a.logger.Error().Str("url", art.URL).Msg("no categories resolved")
		res.Errors++

		return
	}

	if err := a.store.LinkArticleCategories(ctx, record.ID, ids); err != nil {
		a.logger.Error().Err(err).Str("url", art.URL).Msg("link categories failed")
		observability.SourceErrors.WithLabelValues(src.Name, "link").Inc()
		res.Errors++
	}
}

// Counts reports corpus totals for the run summary.
func (a *Aggregator) Counts(ctx context.Context) (storage.ArticleCounts, error) {
	return a.store.ArticleCounts(ctx)
}
