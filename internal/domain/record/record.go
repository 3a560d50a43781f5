// Package record resolves the fastest watchable record set of a configured
// category and memoizes it for the rest of the resolution pass.
//
// Only the unwatchable flag influences resolution. Watched and deferred
// runs are a presentation decision taken by callers on the returned set,
// so cached answers stay valid whatever the viewer does during the pass.
package record

import (
	"context"
	"errors"
	"time"

	"github.com/okian/wrwatch/internal/domain/dedupe"
	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/variant"
	"github.com/okian/wrwatch/pkg/logger"
	"github.com/okian/wrwatch/pkg/metrics"
)

// Leaderboard scopes, also used as metric labels.
const (
	scopeCategory = "category"
	scopeLevel    = "level"
)

// Leaderboards queries upstream leaderboards. Returned runs must be sorted
// ascending by time with ties adjacent; the resolver does not re-sort.
type Leaderboards interface {
	CategoryLeaderboard(ctx context.Context, c model.SourceCategory, f model.Filter) ([]model.Run, error)
	LevelLeaderboard(ctx context.Context, l model.Level, c model.SourceCategory, f model.Filter) ([]model.Run, error)
}

// Entities resolves source categories and levels. entity.Cache implements it.
type Entities interface {
	Category(ctx context.Context, id string) (model.SourceCategory, error)
	Level(ctx context.Context, id string) (model.Level, error)
}

// WatchState answers whether a run can never be watched.
type WatchState interface {
	IsUnwatchable(runID string) bool
}

type cacheKey struct {
	game     string
	category string
}

// Resolver owns the record cache of one pass. It is not safe for
// concurrent use.
type Resolver struct {
	games    map[string]model.Game
	entities Entities
	boards   Leaderboards
	watch    WatchState
	expander *variant.Expander

	records map[cacheKey][]model.Run

	pass   string
	logger logger.Logger
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPassID tags log lines with the id of the owning pass.
func WithPassID(id string) Option {
	return func(r *Resolver) {
		r.pass = id
	}
}

// New creates a Resolver with an empty record cache.
func New(games []model.Game, entities Entities, boards Leaderboards, watch WatchState, opts ...Option) *Resolver {
	r := &Resolver{
		games:    make(map[string]model.Game, len(games)),
		entities: entities,
		boards:   boards,
		watch:    watch,
		records:  make(map[cacheKey][]model.Run),
	}
	for _, g := range games {
		r.games[g.Name] = g
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("record")
	}
	r.expander = variant.NewExpander(entities, variant.WithLogger(r.logger))
	return r
}

// Resolve returns the tied fastest watchable runs of a category, merged
// with its sub-categories. An empty result means no record is known.
// Errors match model.ErrConfiguration or model.ErrUpstream; nothing is
// cached for a category whose resolution failed.
func (r *Resolver) Resolve(ctx context.Context, gameName, categoryName string) ([]model.Run, error) {
	runs, err := r.resolve(ctx, gameName, categoryName, make(map[string]bool))
	switch {
	case err == nil:
		metrics.RecordResolve(metrics.OutcomeOK)
	case errors.Is(err, model.ErrConfiguration):
		metrics.RecordResolve(metrics.OutcomeConfigurationError)
	default:
		metrics.RecordResolve(metrics.OutcomeUpstreamError)
	}
	if err != nil {
		r.logger.Warn(ctx, "resolve failed",
			logger.String("pass", r.pass),
			logger.String("game", gameName),
			logger.String("category", categoryName),
			logger.Error(err))
		return nil, err
	}
	return model.CloneRuns(runs), nil
}

// Cached reports how many categories have a stored result.
func (r *Resolver) Cached() int {
	return len(r.records)
}

func (r *Resolver) resolve(ctx context.Context, gameName, name string, visiting map[string]bool) ([]model.Run, error) {
	k := cacheKey{game: gameName, category: name}
	if runs, ok := r.records[k]; ok {
		metrics.RecordCacheHit()
		return runs, nil
	}

	game, ok := r.games[gameName]
	if !ok {
		return nil, &model.ConfigurationError{Game: gameName, Category: name, Reason: model.ErrGameNotFound}
	}
	cfg, ok := game.Categories[name]
	if !ok {
		return nil, &model.ConfigurationError{Game: gameName, Category: name, Reason: model.ErrCategoryNotFound}
	}
	if visiting[name] {
		return nil, &model.ConfigurationError{Game: gameName, Category: name, Reason: model.ErrSubcategoryCycle}
	}
	visiting[name] = true
	defer delete(visiting, name)

	metrics.RecordCacheMiss()
	variants, err := r.expander.Expand(ctx, cfg)
	if err != nil {
		return nil, err
	}
	metrics.ObserveVariants(len(variants))

	var pool []model.Run
	for _, v := range variants {
		local, err := r.variantRecords(ctx, v)
		if err != nil {
			return nil, err
		}
		pool = append(pool, local...)
	}
	for _, sub := range dedupe.Strings(cfg.Subcategories) {
		runs, err := r.resolve(ctx, gameName, sub, visiting)
		if err != nil {
			return nil, err
		}
		pool = append(pool, runs...)
	}

	result := Fastest(pool)
	r.records[k] = result
	r.logger.Debug(ctx, "category resolved",
		logger.String("pass", r.pass),
		logger.String("game", gameName),
		logger.String("category", name),
		logger.Int("variants", len(variants)),
		logger.Int("records", len(result)))
	return result, nil
}

// variantRecords fetches one leaderboard and returns its tied fastest
// watchable prefix.
func (r *Resolver) variantRecords(ctx context.Context, v model.Variant) ([]model.Run, error) {
	cat, err := r.entities.Category(ctx, v.CategoryID)
	if err != nil {
		return nil, err
	}

	var (
		runs  []model.Run
		scope = scopeCategory
		start = time.Now()
	)
	if v.LevelID == "" {
		runs, err = r.boards.CategoryLeaderboard(ctx, cat, v.Filter)
	} else {
		scope = scopeLevel
		lvl, lerr := r.entities.Level(ctx, v.LevelID)
		if lerr != nil {
			return nil, lerr
		}
		runs, err = r.boards.LevelLeaderboard(ctx, lvl, cat, v.Filter)
	}
	metrics.RecordLeaderboardFetch(scope, time.Since(start), err)
	if err != nil {
		return nil, model.Upstream("leaderboard", v.String(), err)
	}

	watchable := make([]model.Run, 0, len(runs))
	for _, run := range runs {
		if r.watch != nil && r.watch.IsUnwatchable(run.ID) {
			continue
		}
		watchable = append(watchable, run)
	}
	metrics.AddUnwatchable(len(runs) - len(watchable))
	return TiedPrefix(watchable), nil
}

// TiedPrefix returns the leading runs sharing the first run's time. runs
// must be sorted ascending by time.
func TiedPrefix(runs []model.Run) []model.Run {
	if len(runs) == 0 {
		return nil
	}
	n := 1
	for n < len(runs) && runs[n].Time == runs[0].Time {
		n++
	}
	return runs[:n]
}

// Fastest keeps the runs of pool at its minimum time, first occurrence of
// each run id only. It never returns nil.
func Fastest(pool []model.Run) []model.Run {
	if len(pool) == 0 {
		return []model.Run{}
	}
	best := pool[0].Time
	for _, run := range pool[1:] {
		if run.Time < best {
			best = run.Time
		}
	}
	tied := make([]model.Run, 0, len(pool))
	for _, run := range pool {
		if run.Time == best {
			tied = append(tied, run)
		}
	}
	return dedupe.By(tied, func(run model.Run) string { return run.ID })
}
