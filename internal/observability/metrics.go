package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticlesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_articles_found_total",
		Help: "The total number of new articles found in feeds",
	}, []string{"source"})

	ArticlesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_articles_analyzed_total",
		Help: "The total number of articles sent for classification",
	})

	ArticlesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_articles_stored_total",
		Help: "The total number of articles persisted",
	})

	ArticlesFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_articles_filtered_total",
		Help: "The total number of articles marked filtered by classification",
	}, []string{"source"})

	ClassificationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_classification_fallbacks_total",
		Help: "The total number of articles that received the fallback verdict",
	})

	CategoriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_categories_created_total",
		Help: "The total number of new categories created",
	})

	SourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_source_errors_total",
		Help: "The total number of per-source processing errors",
	}, []string{"source", "stage"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregator_fetch_duration_seconds",
		Help:    "Duration of feed fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
)
