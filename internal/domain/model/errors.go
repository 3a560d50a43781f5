package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for resolution errors. Every error returned by the
// resolver matches exactly one of ErrConfiguration or ErrUpstream.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")

	ErrGameNotFound     = errors.New("game not configured")
	ErrCategoryNotFound = errors.New("category not configured")
	ErrSubcategoryCycle = errors.New("subcategory cycle")
)

// ConfigurationError reports a reference with no matching configuration
// entry. Not retryable.
type ConfigurationError struct {
	Game     string
	Category string
	Reason   error
}

func (e *ConfigurationError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("game %q: %v", e.Game, e.Reason)
	}
	return fmt.Sprintf("game %q category %q: %v", e.Game, e.Category, e.Reason)
}

// Is matches ErrConfiguration as well as the specific reason.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration || errors.Is(e.Reason, target)
}

// UpstreamError wraps a failed call to the leaderboard source.
type UpstreamError struct {
	Op  string
	ID  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError unless it already is one.
func Upstream(op, id string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Op: op, ID: id, Err: err}
}
