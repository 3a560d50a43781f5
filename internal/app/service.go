// Package service runs resolution passes over the configured games and
// exposes their results to the CLI and the HTTP API.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wrwatch/internal/domain/entity"
	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/record"
	"github.com/okian/wrwatch/internal/domain/report"
	"github.com/okian/wrwatch/internal/domain/watch"
	"github.com/okian/wrwatch/pkg/logger"
	"github.com/okian/wrwatch/pkg/metrics"
)

// Source is the upstream the service resolves against. srcom.Client and
// testsource.Source implement it.
type Source interface {
	entity.Fetcher
	record.Leaderboards
}

// Notifier lists the account notifications counted in a report.
type Notifier interface {
	Notifications(ctx context.Context) ([]model.Notification, error)
}

// Service owns the configuration snapshot and runs passes. Passes are
// serialized: resolution and its caches are single-threaded.
type Service struct {
	mu sync.Mutex

	source   Source
	notifier Notifier
	games    []model.Game
	watch    *watch.Store
	now      func() time.Time

	stats Stats

	logger logger.Logger
}

// Stats describes the service and its most recent pass.
type Stats struct {
	Games          int       `json:"games"`
	Categories     int       `json:"categories"`
	WatchStates    int       `json:"watch_states"`
	Passes         int       `json:"passes"`
	LastPassID     string    `json:"last_pass_id,omitempty"`
	LastPassAt     time.Time `json:"last_pass_at"`
	LastPassMillis int64     `json:"last_pass_ms"`
	LastRecords    int       `json:"last_records"`
	LastFailures   int       `json:"last_failures"`
	LastResolved   int       `json:"last_resolved_categories"`
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the leaderboard source.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithNotifier adds unread account notifications to every report.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithGames sets the configured games.
func WithGames(games []model.Game) Option {
	return func(s *Service) {
		s.games = games
	}
}

// WithWatchState sets the viewer's watch state.
func WithWatchState(store *watch.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.watch = store
		}
	}
}

// WithClock overrides time.Now for presentation decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{
		watch: watch.NewStore(nil),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.stats.Games = len(s.games)
	for _, g := range s.games {
		s.stats.Categories += len(g.Categories)
	}
	s.stats.WatchStates = s.watch.Len()
	return s
}

// Games returns the configured games.
func (s *Service) Games() []model.Game {
	return s.games
}

// Pass is one resolution pass: a fresh entity cache and record cache that
// are discarded when the pass ends.
type Pass struct {
	ID       string
	Entities *entity.Cache
	Resolver *record.Resolver
}

func (s *Service) newPass() *Pass {
	id := uuid.NewString()
	log := s.logger.Named("pass")
	entities := entity.New(s.source, entity.WithLogger(log))
	return &Pass{
		ID:       id,
		Entities: entities,
		Resolver: record.New(s.games, entities, s.source, s.watch,
			record.WithLogger(log), record.WithPassID(id)),
	}
}

// Report runs a full pass over every configured category and applies the
// presentation policy.
func (s *Service) Report(ctx context.Context) (report.Report, error) {
	if s.source == nil {
		return report.Report{}, ErrNoSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	pass := s.newPass()
	s.logger.Info(ctx, "pass started", logger.String("pass", pass.ID), logger.Int("games", len(s.games)))

	rep := report.Build(ctx, s.games, pass.Resolver.Resolve, s.watch, s.now())
	rep.Pass = pass.ID
	s.attachSources(ctx, pass, &rep)
	s.attachNotifications(ctx, pass, &rep)

	took := time.Since(start)
	metrics.RecordPass(took)
	s.stats.Passes++
	s.stats.LastPassID = pass.ID
	s.stats.LastPassAt = rep.GeneratedAt
	s.stats.LastPassMillis = took.Milliseconds()
	s.stats.LastRecords = rep.Total
	s.stats.LastFailures = len(rep.Failures)
	s.stats.LastResolved = pass.Resolver.Cached()

	s.logger.Info(ctx, "pass finished",
		logger.String("pass", pass.ID),
		logger.Int("records", rep.Total),
		logger.Int("failures", len(rep.Failures)),
		logger.Int("source_categories", pass.Entities.Len(entity.KindCategory)),
		logger.Duration("took", took))
	return rep, nil
}

// attachSources lists the upstream games behind each reported game. A
// lookup failure only drops that link.
func (s *Service) attachSources(ctx context.Context, pass *Pass, rep *report.Report) {
	byName := make(map[string]model.Game, len(s.games))
	for _, g := range s.games {
		byName[g.Name] = g
	}
	for i := range rep.Sections {
		sec := &rep.Sections[i]
		ids := make([]string, 0, len(byName[sec.Game].SourceGames))
		for id := range byName[sec.Game].SourceGames {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			g, err := pass.Entities.Game(ctx, id)
			if err != nil {
				s.logger.Warn(ctx, "source game lookup failed",
					logger.String("pass", pass.ID),
					logger.String("game", sec.Game),
					logger.Error(err))
				continue
			}
			sec.Sources = append(sec.Sources, g)
		}
	}
}

// attachNotifications adds unread notifications to rep. A failure is listed
// with the category failures.
func (s *Service) attachNotifications(ctx context.Context, pass *Pass, rep *report.Report) {
	if s.notifier == nil {
		return
	}
	notes, err := s.notifier.Notifications(ctx)
	if err != nil {
		s.logger.Warn(ctx, "notifications lookup failed", logger.String("pass", pass.ID), logger.Error(err))
		rep.Failures = append(rep.Failures, report.Failure{Category: "notifications", Error: err.Error()})
		return
	}
	rep.AddNotifications(notes)
}

// Resolve runs a pass limited to one category and returns its record set.
func (s *Service) Resolve(ctx context.Context, game, category string) ([]model.Run, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pass := s.newPass()
	return pass.Resolver.Resolve(ctx, game, category)
}

// Present applies the presentation policy to a record set.
func (s *Service) Present(records []model.Run) (model.Run, bool) {
	return s.watch.Present(records, s.now())
}

// GetStats returns service statistics.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
