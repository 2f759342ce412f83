// Package category maintains the canonical category vocabulary backed by the
// database.
package category

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/technews/aggregator/internal/storage"
)

type store interface {
	Categories(ctx context.Context) ([]storage.Category, error)
	CreateCategory(ctx context.Context, name string) (uuid.UUID, error)
}

// Registry caches the category vocabulary and creates missing entries on
// demand.
type Registry struct {
	store  store
	logger *zerolog.Logger

	mu    sync.RWMutex
	names map[string]uuid.UUID
}

func NewRegistry(s store, logger *zerolog.Logger) *Registry {
	return &Registry{
		store:  s,
		logger: logger,
		names:  map[string]uuid.UUID{},
	}
}

// Load replaces the cache with the current database vocabulary.
func (r *Registry) Load(ctx context.Context) error {
	categories, err := r.store.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	names := make(map[string]uuid.UUID, len(categories))
	for _, c := range categories {
		names[c.Name] = c.ID
	}

	r.mu.Lock()
	r.names = names
	r.mu.Unlock()

	return nil
}

// Refresh reloads the vocabulary. Other aggregator instances may have created
// categories since the last load.
func (r *Registry) Refresh(ctx context.Context) error {
	return r.Load(ctx)
}

func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.names[name]

	return ok
}

// ID returns the id for a cached category name.
func (r *Registry) ID(name string) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[name]

	return id, ok
}

// Create ensures a category exists, returning its id. Creation is idempotent
// across concurrent instances. The cache is only updated on success.
func (r *Registry) Create(ctx context.Context, name string) (uuid.UUID, error) {
	if id, ok := r.ID(name); ok {
		return id, nil
	}

	id, err := r.store.CreateCategory(ctx, name)
	if err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	r.names[name] = id
	r.mu.Unlock()

	r.logger.Info().Str("category", name).Msg("category created")

	return id, nil
}

// Names returns the cached vocabulary sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}

	r.mu.RUnlock()

	sort.Strings(names)

	return names
}

// Resolve canonicalizes raw category names, creates missing ones, and returns
// the ids to link. Duplicates collapse after canonicalization. When nothing
// resolves, the GENERAL category is used so every article keeps at least one
// link.
func (r *Registry) Resolve(ctx context.Context, raw []string) ([]uuid.UUID, int) {
	seen := map[string]struct{}{}
	ids := make([]uuid.UUID, 0, len(raw))
	created := 0

	for _, name := range raw {
		canonical := Canonicalize(name)
		if canonical == "" {
			continue
		}

		if _, dup := seen[canonical]; dup {
			continue
		}

		seen[canonical] = struct{}{}

		known := r.Exists(canonical)

		id, err := r.Create(ctx, canonical)
		if err != nil {
			r.logger.Error().Err(err).Str("category", canonical).Msg("resolve category failed")
			continue
		}

		if !known {
			created++
		}

		ids = append(ids, id)
	}

	if len(ids) > 0 {
		return ids, created
	}

	id, err := r.Create(ctx, "GENERAL")
	if err != nil {
		r.logger.Error().Err(err).Msg("fallback category unavailable")
		return nil, created
	}

	return []uuid.UUID{id}, created
}

// ImportResult reports the outcome of a bulk vocabulary import.
type ImportResult struct {
	Created  int
	Existing int
	Errors   int
}

// ImportList seeds the vocabulary from a list of names.
func (r *Registry) ImportList(ctx context.Context, names []string) ImportResult {
	var res ImportResult

	for _, name := range names {
		canonical := Canonicalize(name)
		if canonical == "" {
			continue
		}

		if r.Exists(canonical) {
			res.Existing++
			continue
		}

		if _, err := r.Create(ctx, canonical); err != nil {
			r.logger.Error().Err(err).Str("category", canonical).Msg("import category failed")
			res.Errors++

			continue
		}

		res.Created++
	}

	return res
}
