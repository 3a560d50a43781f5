// Package variant expands a category configuration into the concrete
// leaderboard queries needed to determine its record.
package variant

import (
	"context"
	"sort"

	"github.com/okian/wrwatch/internal/domain/dedupe"
	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/pkg/logger"
)

// CategoryLookup resolves source category ids. entity.Cache implements it.
type CategoryLookup interface {
	Category(ctx context.Context, id string) (model.SourceCategory, error)
}

// Expander turns a CategoryConfig into Variants.
type Expander struct {
	categories CategoryLookup
	logger     logger.Logger
}

// Option applies a configuration option to the Expander.
type Option func(*Expander)

// WithLogger sets the expander logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExpander creates an Expander that learns the individual-level flag of
// each source category through lookup.
func NewExpander(lookup CategoryLookup, opts ...Option) *Expander {
	e := &Expander{categories: lookup}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("variant")
	}
	return e
}

// Expand returns the variants for cfg: every complete filter crossed with
// every source category, and for individual-level categories crossed again
// with every configured level. Order is filter-major and deterministic.
// Sub-categories are not expanded here.
func (e *Expander) Expand(ctx context.Context, cfg model.CategoryConfig) ([]model.Variant, error) {
	cats := make([]model.SourceCategory, 0, len(cfg.SourceCategories))
	for _, id := range dedupe.Strings(cfg.SourceCategories) {
		c, err := e.categories.Category(ctx, id)
		if err != nil {
			return nil, err
		}
		if c.IndividualLevel && len(cfg.Levels) == 0 {
			e.logger.Warn(ctx, "individual-level category has no levels configured",
				logger.String("category", id))
		}
		cats = append(cats, c)
	}
	levels := dedupe.Strings(cfg.Levels)

	var out []model.Variant
	for _, f := range Filters(cfg.Variables) {
		for _, c := range cats {
			if !c.IndividualLevel {
				out = append(out, model.Variant{CategoryID: c.ID, Filter: f})
				continue
			}
			for _, l := range levels {
				out = append(out, model.Variant{CategoryID: c.ID, Filter: f, LevelID: l})
			}
		}
	}
	return out, nil
}

// Filters returns the cartesian product of variable choices. An empty
// variable map yields a single nil filter (no filtering); a variable with no
// allowed values yields no filters at all.
func Filters(vars map[string][]string) []model.Filter {
	if len(vars) == 0 {
		return []model.Filter{nil}
	}
	ids := make([]string, 0, len(vars))
	for id := range vars {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := []model.Filter{{}}
	for _, id := range ids {
		values := dedupe.Strings(vars[id])
		sort.Strings(values)
		next := make([]model.Filter, 0, len(out)*len(values))
		for _, partial := range out {
			for _, v := range values {
				f := make(model.Filter, len(partial)+1)
				for k, pv := range partial {
					f[k] = pv
				}
				f[id] = v
				next = append(next, f)
			}
		}
		out = next
	}
	return out
}
