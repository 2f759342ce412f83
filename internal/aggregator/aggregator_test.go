package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/technews/aggregator/internal/analyzer"
	"github.com/technews/aggregator/internal/feed"
	"github.com/technews/aggregator/internal/storage"
)

type fakeStore struct {
	sources     map[string][]storage.Source
	existing    map[string]struct{}
	articles    []storage.ArticleRecord
	links       map[uuid.UUID][]uuid.UUID
	createErr   error
	upserts     []storage.Source
	upsertExist map[string]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources:     map[string][]storage.Source{},
		existing:    map[string]struct{}{},
		links:       map[uuid.UUID][]uuid.UUID{},
		upsertExist: map[string]struct{}{},
	}
}

func (s *fakeStore) SourcesByGroup(_ context.Context) (map[string][]storage.Source, error) {
	return s.sources, nil
}

func (s *fakeStore) ExistingURLs(_ context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(s.existing))
	for url := range s.existing {
		known[url] = struct{}{}
	}

	return known, nil
}

func (s *fakeStore) CreateArticle(_ context.Context, a *storage.ArticleRecord) error {
	if s.createErr != nil {
		return s.createErr
	}

	a.ID = uuid.New()
	s.articles = append(s.articles, *a)

	return nil
}

func (s *fakeStore) LinkArticleCategories(_ context.Context, articleID uuid.UUID, categoryIDs []uuid.UUID) error {
	s.links[articleID] = append(s.links[articleID], categoryIDs...)
	return nil
}

func (s *fakeStore) UpsertSource(_ context.Context, src storage.Source) (bool, error) {
	s.upserts = append(s.upserts, src)

	if _, ok := s.upsertExist[src.Name]; ok {
		return false, nil
	}

	s.upsertExist[src.Name] = struct{}{}

	return true, nil
}

func (s *fakeStore) ArticleCounts(_ context.Context) (storage.ArticleCounts, error) {
	counts := storage.ArticleCounts{Total: len(s.articles)}
	for _, a := range s.articles {
		if a.Filtered {
			counts.Filtered++
		}
	}

	counts.Active = counts.Total - counts.Filtered

	return counts, nil
}

type fakeFetcher struct {
	articles map[string][]feed.Article
	err      error
	requests []feed.FetchRequest
}

func (f *fakeFetcher) Fetch(_ context.Context, req feed.FetchRequest) ([]feed.Article, error) {
	f.requests = append(f.requests, req)

	if f.err != nil {
		return nil, f.err
	}

	var out []feed.Article

	for _, a := range f.articles[req.SourceName] {
		if _, known := req.KnownURLs[a.URL]; known {
			continue
		}

		out = append(out, a)
	}

	if req.MaxArticles > 0 && len(out) > req.MaxArticles {
		out = out[:req.MaxArticles]
	}

	return out, nil
}

type fakeClassifier struct {
	verdicts map[string]analyzer.Verdict
}

func (c *fakeClassifier) AnalyzeBatch(_ context.Context, inputs []analyzer.Input, _ time.Duration) []analyzer.Verdict {
	out := make([]analyzer.Verdict, len(inputs))

	for i, in := range inputs {
		if v, ok := c.verdicts[in.Title]; ok {
			out[i] = v
			continue
		}

		out[i] = analyzer.Verdict{Categories: []string{"GENERAL"}, RelevanceScore: 3, Tone: "news"}
	}

	return out
}

type fakeRegistry struct {
	ids      map[string]uuid.UUID
	refreshs int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{ids: map[string]uuid.UUID{}}
}

func (r *fakeRegistry) Refresh(_ context.Context) error {
	r.refreshs++
	return nil
}

func (r *fakeRegistry) Resolve(_ context.Context, raw []string) ([]uuid.UUID, int) {
	var (
		ids     []uuid.UUID
		created int
		seen    = map[string]struct{}{}
	)

	for _, name := range raw {
		// Mirrors the real registry's synonym folding for the one pair the
		// tests rely on.
		if name == "Machine Learning" {
			name = "AI"
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		id, ok := r.ids[name]
		if !ok {
			id = uuid.New()
			r.ids[name] = id
			created++
		}

		ids = append(ids, id)
	}

	return ids, created
}

func (r *fakeRegistry) Names() []string {
	names := make([]string, 0, len(r.ids))
	for name := range r.ids {
		names = append(names, name)
	}

	return names
}

func testAggregator(s *fakeStore, f *fakeFetcher, c *fakeClassifier, r *fakeRegistry) *Aggregator {
	logger := zerolog.Nop()
	return New(s, f, c, r, Options{ClassifyDelay: 0}, &logger)
}

func enabledSource(name, group string) storage.Source {
	return storage.Source{
		ID:                  uuid.New(),
		Name:                name,
		RSSURL:              "https://example.com/" + name + "/rss",
		SourceGroup:         group,
		Enabled:             true,
		MaxArticlesPerFetch: 10,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("ai-news", "AI")}
	s.existing["https://example.com/known"] = struct{}{}

	f := &fakeFetcher{articles: map[string][]feed.Article{
		"ai-news": {
			{Title: "New model", URL: "https://example.com/new-model", Description: "d", SourceName: "ai-news"},
			{Title: "Old story", URL: "https://example.com/known", Description: "d", SourceName: "ai-news"},
		},
	}}

	c := &fakeClassifier{verdicts: map[string]analyzer.Verdict{
		"New model": {Categories: []string{"Machine Learning"}, RelevanceScore: 4, Tone: "technical"},
	}}

	r := newFakeRegistry()
	agg := testAggregator(s, f, c, r)

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.SourcesProcessed)
	require.Equal(t, 1, res.ArticlesFound, "known URL must be skipped before analysis")
	require.Equal(t, 1, res.Analyzed)
	require.Equal(t, 1, res.Stored)
	require.Equal(t, 0, res.Filtered)
	require.Equal(t, 1, res.NewCategories)
	require.Equal(t, 0, res.Errors)

	require.Len(t, s.articles, 1)
	stored := s.articles[0]
	require.Equal(t, "New model", stored.Title)
	require.Equal(t, 4, stored.RelevanceScore)
	require.Equal(t, "technical", stored.Tone)

	aiID, ok := r.ids["AI"]
	require.True(t, ok, "synonym must resolve to the canonical category")
	require.Equal(t, []uuid.UUID{aiID}, s.links[stored.ID])

	require.Equal(t, 1, r.refreshs, "registry refreshes once per source")
}

func TestRun_FilteredArticleStoredWithoutLinks(t *testing.T) {
	s := newFakeStore()
	s.sources["OTHER"] = []storage.Source{enabledSource("spamful", "OTHER")}

	f := &fakeFetcher{articles: map[string][]feed.Article{
		"spamful": {{Title: "Buy now", URL: "https://example.com/ad", Description: "d", SourceName: "spamful"}},
	}}

	c := &fakeClassifier{verdicts: map[string]analyzer.Verdict{
		"Buy now": {Categories: []string{"GENERAL"}, RelevanceScore: 1, Tone: "promotional", Filtered: true, FilterReason: "advertisement"},
	}}

	r := newFakeRegistry()
	agg := testAggregator(s, f, c, r)

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Stored, "filtered articles are persisted")
	require.Equal(t, 1, res.Filtered)

	require.Len(t, s.articles, 1)
	require.True(t, s.articles[0].Filtered)
	require.Equal(t, "advertisement", s.articles[0].FilterReason)
	require.Empty(t, s.links, "filtered articles get no category links")
}

func TestRun_GroupSelection(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("ai-news", "AI")}
	s.sources["WEB"] = []storage.Source{enabledSource("web-news", "WEB")}

	f := &fakeFetcher{articles: map[string][]feed.Article{}}
	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	res, err := agg.Run(context.Background(), []string{"AI"})
	require.NoError(t, err)

	require.Equal(t, 1, res.SourcesProcessed)
	require.Len(t, f.requests, 1)
	require.Equal(t, "ai-news", f.requests[0].SourceName)
}

func TestRun_DisabledSourcesSkipped(t *testing.T) {
	s := newFakeStore()

	disabled := enabledSource("off", "AI")
	disabled.Enabled = false
	s.sources["AI"] = []storage.Source{disabled, enabledSource("on", "AI")}

	f := &fakeFetcher{articles: map[string][]feed.Article{}}
	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.SourcesProcessed)
	require.Equal(t, "on", f.requests[0].SourceName)
}

func TestRun_MaxArticlesOverride(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("ai-news", "AI")}

	f := &fakeFetcher{articles: map[string][]feed.Article{}}

	logger := zerolog.Nop()
	agg := New(s, f, &fakeClassifier{}, newFakeRegistry(), Options{MaxArticles: 2}, &logger)

	_, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 2, f.requests[0].MaxArticles)
}

func TestRun_FetchFailureCountedNotFatal(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("broken", "AI"), enabledSource("working", "AI")}

	f := &fakeFetcher{err: errors.New("connection refused")}
	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 2, res.SourcesProcessed, "a broken source must not stop the run")
	require.Equal(t, 2, res.Errors)
}

func TestRun_StoreFailureCountedPerArticle(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("ai-news", "AI")}
	s.createErr = errors.New("constraint violation")

	f := &fakeFetcher{articles: map[string][]feed.Article{
		"ai-news": {{Title: "T", URL: "https://example.com/t", SourceName: "ai-news"}},
	}}

	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 0, res.Stored)
	require.Equal(t, 1, res.Errors)
}

func TestRun_CancelledBeforeNextSource(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("a", "AI"), enabledSource("b", "AI")}

	ctx, cancel := context.WithCancel(context.Background())

	f := &fakeFetcher{articles: map[string][]feed.Article{}}
	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	cancel()

	res, err := agg.Run(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, res.SourcesProcessed)
}

func TestRun_StoredURLJoinsKnownSet(t *testing.T) {
	s := newFakeStore()
	s.sources["AI"] = []storage.Source{enabledSource("first", "AI"), enabledSource("second", "AI")}

	shared := feed.Article{Title: "Same story", URL: "https://example.com/same", SourceName: ""}

	firstCopy := shared
	firstCopy.SourceName = "first"
	secondCopy := shared
	secondCopy.SourceName = "second"

	f := &fakeFetcher{articles: map[string][]feed.Article{
		"first":  {firstCopy},
		"second": {secondCopy},
	}}

	agg := testAggregator(s, f, &fakeClassifier{}, newFakeRegistry())

	res, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Stored, "an article stored this run must dedup later sources")
	require.Len(t, s.articles, 1)
}
