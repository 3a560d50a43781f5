package service

import "errors"

var (
	// ErrNoSource is returned when a pass is requested without a leaderboard source.
	ErrNoSource = errors.New("service: no leaderboard source configured")
)
