// Package entity memoizes upstream entity lookups for one resolution pass.
//
// A Cache fetches each (kind, id) at most once while it lives. Failed
// fetches are not stored, so a later lookup for the same id tries again.
// A Cache is not safe for concurrent use; a pass owns exactly one.
package entity

import (
	"context"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/pkg/logger"
	"github.com/okian/wrwatch/pkg/metrics"
)

// Entity kinds, also used as metric labels.
const (
	KindCategory = "category"
	KindGame     = "game"
	KindLevel    = "level"
)

// Fetcher loads entities from the leaderboard source.
type Fetcher interface {
	FetchCategory(ctx context.Context, id string) (model.SourceCategory, error)
	FetchGame(ctx context.Context, id string) (model.SourceGame, error)
	FetchLevel(ctx context.Context, id string) (model.Level, error)
}

type memo[T any] struct {
	kind  string
	items map[string]T
	fetch func(ctx context.Context, id string) (T, error)
}

func newMemo[T any](kind string, fetch func(context.Context, string) (T, error)) *memo[T] {
	return &memo[T]{kind: kind, items: make(map[string]T), fetch: fetch}
}

func (m *memo[T]) get(ctx context.Context, log logger.Logger, id string) (T, error) {
	if v, ok := m.items[id]; ok {
		metrics.RecordEntityCacheHit(m.kind)
		return v, nil
	}
	metrics.RecordEntityFetch(m.kind)
	v, err := m.fetch(ctx, id)
	if err != nil {
		metrics.RecordEntityFetchError(m.kind)
		log.Debug(ctx, "entity fetch failed", logger.String("kind", m.kind), logger.String("id", id), logger.Error(err))
		var zero T
		return zero, model.Upstream("fetch "+m.kind, id, err)
	}
	m.items[id] = v
	return v, nil
}

// Cache is the per-pass entity cache.
type Cache struct {
	categories *memo[model.SourceCategory]
	games      *memo[model.SourceGame]
	levels     *memo[model.Level]
	logger     logger.Logger
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty Cache backed by f.
func New(f Fetcher, opts ...Option) *Cache {
	c := &Cache{
		categories: newMemo(KindCategory, f.FetchCategory),
		games:      newMemo(KindGame, f.FetchGame),
		levels:     newMemo(KindLevel, f.FetchLevel),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("entity")
	}
	return c
}

// Category returns the source category with the given id.
func (c *Cache) Category(ctx context.Context, id string) (model.SourceCategory, error) {
	return c.categories.get(ctx, c.logger, id)
}

// Game returns the source game with the given id.
func (c *Cache) Game(ctx context.Context, id string) (model.SourceGame, error) {
	return c.games.get(ctx, c.logger, id)
}

// Level returns the level with the given id.
func (c *Cache) Level(ctx context.Context, id string) (model.Level, error) {
	return c.levels.get(ctx, c.logger, id)
}

// Len reports how many entities of kind are cached.
func (c *Cache) Len(kind string) int {
	switch kind {
	case KindCategory:
		return len(c.categories.items)
	case KindGame:
		return len(c.games.items)
	case KindLevel:
		return len(c.levels.items)
	default:
		return 0
	}
}
