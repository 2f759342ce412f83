package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/technews/aggregator/internal/aggregator"
	"github.com/technews/aggregator/internal/analyzer"
	"github.com/technews/aggregator/internal/category"
	"github.com/technews/aggregator/internal/config"
	"github.com/technews/aggregator/internal/feed"
	"github.com/technews/aggregator/internal/observability"
	"github.com/technews/aggregator/internal/storage"
)

func main() {
	groupsFlag := flag.String("groups", "", "Comma-separated source groups to process (default all)")
	maxFlag := flag.Int("max", 0, "Override per-source article cap")
	syncOnly := flag.Bool("sync-only", false, "Sync the source catalog and exit")
	listSources := flag.Bool("list-sources", false, "List configured sources and exit")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := storage.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	llm := analyzer.New(analyzer.Options{
		APIURL:  cfg.LLMAPIURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Retries: cfg.LLMRetries,
		Timeout: cfg.LLMTimeout,
	}, &logger)

	registry := category.NewRegistry(database, &logger)

	fetcher := feed.NewFetcher(feed.Options{
		Delay:       cfg.FetchDelay,
		Timeout:     cfg.FetchTimeout,
		PageTimeout: cfg.PageFetchTimeout,
		UserAgent:   cfg.FetchUserAgent,
	}, &logger)

	agg := aggregator.New(database, fetcher, llm, registry, aggregator.Options{
		MaxArticles:   *maxFlag,
		ClassifyDelay: cfg.ClassifyDelay,
	}, &logger)

	health := observability.NewServer(database, cfg.HealthPort, &logger)

	go func() {
		if err := health.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if *listSources {
		if err := printSources(ctx, database); err != nil {
			logger.Fatal().Err(err).Msg("failed to list sources")
		}

		return
	}

	syncRes, err := agg.SyncSources(ctx, cfg.SourcesFile, cfg.MaxArticles)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to sync source catalog")
	}

	logger.Info().Int("created", syncRes.Created).Int("skipped", syncRes.Skipped).Msg("source catalog synced")

	if *syncOnly {
		return
	}

	// Pre-flight checks. A run without a reachable database or classification
	// endpoint would store nothing useful.
	if err := database.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("database pre-flight check failed")
	}

	if !llm.TestConnection(ctx) {
		logger.Fatal().Msg("classification endpoint pre-flight check failed")
	}

	if err := registry.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load category registry")
	}

	groups := splitGroups(*groupsFlag)

	started := time.Now()

	res, err := agg.Run(ctx, groups)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("run failed")
	}

	printSummary(ctx, agg, res, time.Since(started))
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func splitGroups(raw string) []string {
	if raw == "" {
		return nil
	}

	var groups []string

	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	return groups
}

func printSources(ctx context.Context, database *storage.DB) error {
	grouped, err := database.SourcesByGroup(ctx)
	if err != nil {
		return err
	}

	groups := make([]string, 0, len(grouped))
	for name := range grouped {
		groups = append(groups, name)
	}

	sort.Strings(groups)

	for _, group := range groups {
		fmt.Printf("%s:\n", group)

		for _, src := range grouped[group] {
			state := "enabled"
			if !src.Enabled {
				state = "disabled"
			}

			fmt.Printf("  %-30s %-8s max=%-3d %s\n", src.Name, state, src.MaxArticlesPerFetch, src.RSSURL)
		}
	}

	return nil
}

func printSummary(ctx context.Context, agg *aggregator.Aggregator, res aggregator.Results, elapsed time.Duration) {
	fmt.Printf("\nRun complete in %s\n", elapsed.Round(time.Second))
	fmt.Printf("  Sources processed: %d\n", res.SourcesProcessed)
	fmt.Printf("  Articles found:    %d\n", res.ArticlesFound)
	fmt.Printf("  Analyzed:          %d\n", res.Analyzed)
	fmt.Printf("  Stored:            %d\n", res.Stored)
	fmt.Printf("  Filtered:          %d\n", res.Filtered)
	fmt.Printf("  New categories:    %d\n", res.NewCategories)
	fmt.Printf("  Errors:            %d\n", res.Errors)

	if counts, err := agg.Counts(ctx); err == nil {
		fmt.Printf("  Corpus:            %d total, %d active, %d filtered\n",
			counts.Total, counts.Active, counts.Filtered)
	}
}
