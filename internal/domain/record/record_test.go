package record_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wrwatch/internal/domain/entity"
	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/record"
	"github.com/okian/wrwatch/internal/domain/watch"
	"github.com/okian/wrwatch/internal/testsource"
	"github.com/okian/wrwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func run(id string, secs int) model.Run {
	return model.Run{ID: id, Time: time.Duration(secs) * time.Second, Runners: []string{"runner-" + id}}
}

func ids(runs []model.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func pcFilter() model.Filter { return model.Filter{"platform": "pc"} }
func switchFilter() model.Filter { return model.Filter{"platform": "switch"} }

type fixture struct {
	src      *testsource.Source
	games    []model.Game
	watch    *watch.Store
	resolver *record.Resolver
}

func newFixture(categories map[string]model.CategoryConfig, states map[string]watch.State) *fixture {
	f := &fixture{
		src: testsource.New().
			AddCategory(model.SourceCategory{ID: "abc123"}).
			AddCategory(model.SourceCategory{ID: "def456"}).
			AddCategory(model.SourceCategory{ID: "il", IndividualLevel: true}).
			AddLevel(model.Level{ID: "l1"}).
			AddLevel(model.Level{ID: "l2"}),
		games: []model.Game{{Name: "game", Categories: categories}},
		watch: watch.NewStore(states),
	}
	f.reset()
	return f
}

// reset starts a new pass over the same source.
func (f *fixture) reset() {
	f.resolver = record.New(f.games, entity.New(f.src), f.src, f.watch, record.WithPassID("test"))
}

func TestResolveSingleLeaderboard(t *testing.T) {
	Convey("Given a category backed by one unfiltered leaderboard", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Any%": {SourceCategories: []string{"abc123"}},
		}, nil)
		f.src.SetBoard("abc123", "", nil, run("r1", 60), run("r2", 60), run("r3", 61))

		Convey("When resolving it", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the tied prefix at the minimum time is returned", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r1", "r2"})
			})
		})

		Convey("When the fastest run is unwatchable", func() {
			f.watch = watch.NewStore(map[string]watch.State{"r1": {Unwatchable: true}, "r2": {Unwatchable: true}})
			f.reset()
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the next fastest watchable run is the record", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r3"})
			})
		})

		Convey("When runs are only watched or deferred", func() {
			later := time.Now().Add(time.Hour)
			f.watch = watch.NewStore(map[string]watch.State{"r1": {Watched: true}, "r2": {DeferredUntil: &later}})
			f.reset()
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then they still count as records", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r1", "r2"})
			})
		})

		Convey("When the caller modifies a returned set", func() {
			runs, _ := f.resolver.Resolve(ctx, "game", "Any%")
			runs[0].ID = "mutated"
			runs[0].Runners[0] = "mutated"
			again, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the cached answer is unaffected", func() {
				So(err, ShouldBeNil)
				So(ids(again), ShouldResemble, []string{"r1", "r2"})
				So(again[0].Runners, ShouldResemble, []string{"runner-r1"})
			})
		})
	})
}

func TestResolveFilteredVariants(t *testing.T) {
	Convey("Given the Any% example with a platform variable", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Any%": {
				SourceCategories: []string{"abc123"},
				Variables:        map[string][]string{"platform": {"pc", "switch"}},
			},
		}, nil)
		f.src.SetBoard("abc123", "", pcFilter(), run("r1", 60), run("r2", 65))
		f.src.SetBoard("abc123", "", switchFilter(), run("r3", 55))

		Convey("When resolving it", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the global minimum wins", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r3"})
			})
		})

		Convey("When resolving it twice in one pass", func() {
			first, err1 := f.resolver.Resolve(ctx, "game", "Any%")
			second, err2 := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then results are equal and each variant was fetched once", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(f.src.TotalCalls("board:"), ShouldEqual, 2)
				So(f.src.TotalCalls("category:"), ShouldEqual, 1)
				So(f.resolver.Cached(), ShouldEqual, 1)
			})
		})

		Convey("When a new pass starts", func() {
			_, _ = f.resolver.Resolve(ctx, "game", "Any%")
			f.reset()
			_, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the caches start empty", func() {
				So(err, ShouldBeNil)
				So(f.src.TotalCalls("board:"), ShouldEqual, 4)
				So(f.src.TotalCalls("category:"), ShouldEqual, 2)
			})
		})

		Convey("When every run of the faster variant is unwatchable", func() {
			f.watch = watch.NewStore(map[string]watch.State{"r3": {Unwatchable: true}})
			f.reset()
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then that variant contributes nothing and resolution still succeeds", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r1"})
			})
		})
	})

	Convey("Given two variables with two values each", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Any%": {
				SourceCategories: []string{"abc123", "def456"},
				Variables: map[string][]string{
					"platform": {"pc", "switch"},
					"region":   {"eu", "us"},
				},
			},
		}, nil)
		f.src.SetBoard("abc123", "", model.Filter{"platform": "pc", "region": "eu"}, run("a", 70), run("b", 70))
		f.src.SetBoard("def456", "", model.Filter{"platform": "switch", "region": "us"}, run("c", 70))

		Convey("When resolving it", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then four filtered fetches are made per source category", func() {
				So(err, ShouldBeNil)
				So(f.src.TotalCalls("board:abc123|"), ShouldEqual, 4)
				So(f.src.TotalCalls("board:def456|"), ShouldEqual, 4)
				So(ids(runs), ShouldResemble, []string{"a", "b", "c"})
			})
		})
	})

	Convey("Given a slower variant with a local tie", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Any%": {SourceCategories: []string{"abc123", "def456"}},
		}, nil)
		f.src.SetBoard("abc123", "", nil, run("a1", 50), run("a2", 50))
		f.src.SetBoard("def456", "", nil, run("b1", 40), run("b2", 45))

		Convey("Then only the globally fastest run survives", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Any%")
			So(err, ShouldBeNil)
			So(ids(runs), ShouldResemble, []string{"b1"})
		})
	})
}

func TestResolveIndividualLevels(t *testing.T) {
	Convey("Given an individual-level category over two levels", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"IL": {SourceCategories: []string{"il"}, Levels: []string{"l1", "l2"}},
		}, nil)
		f.src.SetBoard("il", "l1", nil, run("x", 12))
		f.src.SetBoard("il", "l2", nil, run("y", 9), run("z", 9))

		Convey("When resolving it", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "IL")

			Convey("Then each level leaderboard is queried once and merged", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"y", "z"})
				So(f.src.Calls("board:"+testsource.BoardKey("il", "l1", nil)), ShouldEqual, 1)
				So(f.src.Calls("board:"+testsource.BoardKey("il", "l2", nil)), ShouldEqual, 1)
				So(f.src.TotalCalls("level:"), ShouldEqual, 2)
			})
		})
	})
}

func TestResolveSubcategories(t *testing.T) {
	Convey("Given a parent merging two sibling sub-categories", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"All":  {Subcategories: []string{"Fast", "Slow"}},
			"Fast": {SourceCategories: []string{"abc123"}},
			"Slow": {SourceCategories: []string{"def456"}},
		}, nil)
		f.src.SetBoard("abc123", "", nil, run("f1", 30), run("f2", 30))
		f.src.SetBoard("def456", "", nil, run("s1", 31))

		Convey("When resolving the parent", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "All")

			Convey("Then only runs at the faster sibling's time remain", func() {
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"f1", "f2"})
			})

			Convey("And the sub-categories are cached too", func() {
				So(f.resolver.Cached(), ShouldEqual, 3)
				slow, err := f.resolver.Resolve(ctx, "game", "Slow")
				So(err, ShouldBeNil)
				So(ids(slow), ShouldResemble, []string{"s1"})
				So(f.src.TotalCalls("board:"), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a run reachable directly and through a sub-category", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Parent": {SourceCategories: []string{"abc123"}, Subcategories: []string{"Child", "Child"}},
			"Child":  {SourceCategories: []string{"abc123", "def456"}},
		}, nil)
		f.src.SetBoard("abc123", "", nil, run("dup", 20))
		f.src.SetBoard("def456", "", nil, run("dup", 20), run("other", 20))

		Convey("Then every run id appears once", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Parent")
			So(err, ShouldBeNil)
			So(ids(runs), ShouldResemble, []string{"dup", "other"})
		})
	})

	Convey("Given a diamond of sub-categories", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Top":    {Subcategories: []string{"Left", "Right"}},
			"Left":   {Subcategories: []string{"Bottom"}},
			"Right":  {Subcategories: []string{"Bottom"}},
			"Bottom": {SourceCategories: []string{"abc123"}},
		}, nil)
		f.src.SetBoard("abc123", "", nil, run("b", 10))

		Convey("Then the shared sub-category is resolved once and is not a cycle", func() {
			runs, err := f.resolver.Resolve(ctx, "game", "Top")
			So(err, ShouldBeNil)
			So(ids(runs), ShouldResemble, []string{"b"})
			So(f.src.TotalCalls("board:"), ShouldEqual, 1)
		})
	})

	Convey("Given a category with no sources and no sub-categories", t, func() {
		f := newFixture(map[string]model.CategoryConfig{"Empty": {}}, nil)

		Convey("Then the record set is empty without error", func() {
			runs, err := f.resolver.Resolve(context.Background(), "game", "Empty")
			So(err, ShouldBeNil)
			So(runs, ShouldNotBeNil)
			So(runs, ShouldBeEmpty)
			So(f.resolver.Cached(), ShouldEqual, 1)
		})
	})
}

func TestResolveConfigurationErrors(t *testing.T) {
	Convey("Given a configuration with bad references", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Orphan": {Subcategories: []string{"Missing"}},
			"Self":   {Subcategories: []string{"Self"}},
			"A":      {SourceCategories: []string{"abc123"}, Subcategories: []string{"B"}},
			"B":      {Subcategories: []string{"A"}},
		}, nil)

		Convey("When the game is unknown", func() {
			_, err := f.resolver.Resolve(ctx, "nope", "Any%")
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			So(errors.Is(err, model.ErrGameNotFound), ShouldBeTrue)
		})

		Convey("When the category is unknown", func() {
			_, err := f.resolver.Resolve(ctx, "game", "Any%")
			So(errors.Is(err, model.ErrCategoryNotFound), ShouldBeTrue)
			So(errors.Is(err, model.ErrUpstream), ShouldBeFalse)
		})

		Convey("When a sub-category is unknown", func() {
			_, err := f.resolver.Resolve(ctx, "game", "Orphan")
			var ce *model.ConfigurationError
			So(errors.As(err, &ce), ShouldBeTrue)
			So(ce.Category, ShouldEqual, "Missing")
			So(f.resolver.Cached(), ShouldEqual, 0)
		})

		Convey("When a category references itself", func() {
			_, err := f.resolver.Resolve(ctx, "game", "Self")
			So(errors.Is(err, model.ErrSubcategoryCycle), ShouldBeTrue)
		})

		Convey("When two categories reference each other", func() {
			_, err := f.resolver.Resolve(ctx, "game", "A")
			So(errors.Is(err, model.ErrSubcategoryCycle), ShouldBeTrue)
			So(f.resolver.Cached(), ShouldEqual, 0)
		})
	})
}

func TestResolveUpstreamErrors(t *testing.T) {
	Convey("Given a leaderboard that fails once", t, func() {
		ctx := context.Background()
		f := newFixture(map[string]model.CategoryConfig{
			"Any%":    {SourceCategories: []string{"abc123"}, Variables: map[string][]string{"platform": {"pc", "switch"}}},
			"Sibling": {SourceCategories: []string{"def456"}},
			"Parent":  {Subcategories: []string{"Sibling", "Any%"}},
		}, nil)
		f.src.SetBoard("abc123", "", pcFilter(), run("r1", 60))
		f.src.SetBoard("abc123", "", switchFilter(), run("r3", 55))
		f.src.SetBoard("def456", "", nil, run("s", 99))
		boom := errors.New("502 bad gateway")
		f.src.Fail(testsource.BoardKey("abc123", "", switchFilter()), boom)

		Convey("When resolving the failing category", func() {
			_, err := f.resolver.Resolve(ctx, "game", "Any%")

			Convey("Then the upstream error propagates and nothing is cached", func() {
				So(errors.Is(err, model.ErrUpstream), ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
				So(f.resolver.Cached(), ShouldEqual, 0)
			})

			Convey("And a retry re-attempts the variants and succeeds", func() {
				runs, err := f.resolver.Resolve(ctx, "game", "Any%")
				So(err, ShouldBeNil)
				So(ids(runs), ShouldResemble, []string{"r3"})
				So(f.src.TotalCalls("board:abc123|"), ShouldEqual, 4)
			})
		})

		Convey("When a parent depends on the failing category", func() {
			_, err := f.resolver.Resolve(ctx, "game", "Parent")

			Convey("Then the parent fails but the resolved sibling stays cached", func() {
				So(errors.Is(err, model.ErrUpstream), ShouldBeTrue)
				So(f.resolver.Cached(), ShouldEqual, 1)
				sib, err := f.resolver.Resolve(ctx, "game", "Sibling")
				So(err, ShouldBeNil)
				So(ids(sib), ShouldResemble, []string{"s"})
				So(f.src.TotalCalls("board:def456|"), ShouldEqual, 1)
			})
		})

		Convey("When a source category lookup fails", func() {
			f.src.Fail("def456", errors.New("timeout"))
			_, err := f.resolver.Resolve(ctx, "game", "Sibling")

			Convey("Then it is reported as an upstream error", func() {
				var ue *model.UpstreamError
				So(errors.As(err, &ue), ShouldBeTrue)
				So(ue.Op, ShouldEqual, "fetch category")
			})
		})
	})
}

func TestFastest(t *testing.T) {
	Convey("Given candidate pools", t, func() {
		So(record.Fastest(nil), ShouldResemble, []model.Run{})
		So(ids(record.Fastest([]model.Run{run("a", 5), run("b", 3), run("a", 3), run("b", 3)})), ShouldResemble, []string{"b", "a"})
		So(record.TiedPrefix(nil), ShouldBeNil)
		So(ids(record.TiedPrefix([]model.Run{run("a", 1), run("b", 1), run("c", 2), run("d", 1)})), ShouldResemble, []string{"a", "b"})
	})
}
