// Package watch holds the viewer's per-run watch state and the presentation
// policy applied to resolved record sets.
package watch

import (
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
)

// State is what the viewer recorded about one run.
type State struct {
	Unwatchable   bool
	Watched       bool
	DeferredUntil *time.Time
}

// DeferredAt reports whether the run is deferred past now.
func (s State) DeferredAt(now time.Time) bool {
	return s.DeferredUntil != nil && s.DeferredUntil.After(now)
}

// Store is a read-only view of watch state keyed by run id. A nil Store
// knows nothing about any run.
type Store struct {
	runs map[string]State
}

// NewStore copies states into a Store.
func NewStore(states map[string]State) *Store {
	s := &Store{runs: make(map[string]State, len(states))}
	for id, st := range states {
		s.runs[id] = st
	}
	return s
}

// State returns the recorded state of a run.
func (s *Store) State(runID string) (State, bool) {
	if s == nil {
		return State{}, false
	}
	st, ok := s.runs[runID]
	return st, ok
}

// Len returns the number of runs with recorded state.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.runs)
}

// IsUnwatchable is the only predicate the record resolver consults.
func (s *Store) IsUnwatchable(runID string) bool {
	st, _ := s.State(runID)
	return st.Unwatchable
}

// Present picks the run to show for a category's record set. A category is
// hidden when any of its tied records was already watched; otherwise the
// first record that is not deferred past now is shown.
func (s *Store) Present(records []model.Run, now time.Time) (model.Run, bool) {
	for _, r := range records {
		if st, _ := s.State(r.ID); st.Watched {
			return model.Run{}, false
		}
	}
	for _, r := range records {
		if st, _ := s.State(r.ID); !st.DeferredAt(now) {
			return r, true
		}
	}
	return model.Run{}, false
}
