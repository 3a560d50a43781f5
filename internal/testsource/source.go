// Package testsource provides an in-memory leaderboard source with call
// accounting and fault injection, for tests and offline runs.
package testsource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/wrwatch/internal/domain/model"
)

// ErrNotFound is returned for unknown ids.
var ErrNotFound = errors.New("not found")

// BoardKey identifies one leaderboard in a Source.
func BoardKey(categoryID, levelID string, f model.Filter) string {
	return categoryID + "|" + levelID + "|" + f.Key()
}

// Source is a scriptable leaderboard source. The zero value is usable.
type Source struct {
	mu sync.Mutex

	Categories map[string]model.SourceCategory
	Games      map[string]model.SourceGame
	Levels     map[string]model.Level
	// Boards maps BoardKey to runs in ascending time order.
	Boards map[string][]model.Run

	// Failures holds errors returned (once each, in order) for an entity
	// id or a BoardKey before the call is served normally.
	Failures map[string][]error

	calls map[string]int
}

// New returns an empty Source.
func New() *Source {
	return &Source{
		Categories: make(map[string]model.SourceCategory),
		Games:      make(map[string]model.SourceGame),
		Levels:     make(map[string]model.Level),
		Boards:     make(map[string][]model.Run),
		Failures:   make(map[string][]error),
	}
}

// AddCategory registers a source category.
func (s *Source) AddCategory(c model.SourceCategory) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Categories == nil {
		s.Categories = make(map[string]model.SourceCategory)
	}
	s.Categories[c.ID] = c
	return s
}

// AddLevel registers a level.
func (s *Source) AddLevel(l model.Level) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Levels == nil {
		s.Levels = make(map[string]model.Level)
	}
	s.Levels[l.ID] = l
	return s
}

// AddGame registers a game.
func (s *Source) AddGame(g model.SourceGame) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Games == nil {
		s.Games = make(map[string]model.SourceGame)
	}
	s.Games[g.ID] = g
	return s
}

// SetBoard registers the runs of one leaderboard.
func (s *Source) SetBoard(categoryID, levelID string, f model.Filter, runs ...model.Run) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Boards == nil {
		s.Boards = make(map[string][]model.Run)
	}
	s.Boards[BoardKey(categoryID, levelID, f)] = runs
	return s
}

// Fail queues err for the next call touching key (an entity id or BoardKey).
func (s *Source) Fail(key string, err error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Failures == nil {
		s.Failures = make(map[string][]error)
	}
	s.Failures[key] = append(s.Failures[key], err)
	return s
}

// Calls reports how many times key was requested.
func (s *Source) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// TotalCalls reports the number of requests with the given prefix.
// Use "board:" for leaderboards or "category:", "game:", "level:".
func (s *Source) TotalCalls(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, c := range s.calls {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n += c
		}
	}
	return n
}

func (s *Source) enter(kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[kind+":"+key]++
	if q := s.Failures[key]; len(q) > 0 {
		s.Failures[key] = q[1:]
		return q[0]
	}
	return nil
}

// FetchCategory implements entity.Fetcher.
func (s *Source) FetchCategory(_ context.Context, id string) (model.SourceCategory, error) {
	if err := s.enter("category", id); err != nil {
		return model.SourceCategory{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Categories[id]
	if !ok {
		return model.SourceCategory{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// FetchGame implements entity.Fetcher.
func (s *Source) FetchGame(_ context.Context, id string) (model.SourceGame, error) {
	if err := s.enter("game", id); err != nil {
		return model.SourceGame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.Games[id]
	if !ok {
		return model.SourceGame{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g, nil
}

// FetchLevel implements entity.Fetcher.
func (s *Source) FetchLevel(_ context.Context, id string) (model.Level, error) {
	if err := s.enter("level", id); err != nil {
		return model.Level{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.Levels[id]
	if !ok {
		return model.Level{}, fmt.Errorf("level %s: %w", id, ErrNotFound)
	}
	return l, nil
}

// CategoryLeaderboard returns the registered runs; unknown boards are empty.
func (s *Source) CategoryLeaderboard(_ context.Context, c model.SourceCategory, f model.Filter) ([]model.Run, error) {
	return s.board(BoardKey(c.ID, "", f))
}

// LevelLeaderboard returns the registered runs; unknown boards are empty.
func (s *Source) LevelLeaderboard(_ context.Context, l model.Level, c model.SourceCategory, f model.Filter) ([]model.Run, error) {
	return s.board(BoardKey(c.ID, l.ID, f))
}

func (s *Source) board(key string) ([]model.Run, error) {
	if err := s.enter("board", key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneRuns(s.Boards[key]), nil
}
