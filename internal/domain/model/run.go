package model

import (
	"slices"
	"time"
)

// RunState is the verification state of a run.
type RunState string

const (
	RunNew      RunState = "new"
	RunVerified RunState = "verified"
	RunRejected RunState = "rejected"
)

// RunStatus captures verification state and, when known, the verify date.
type RunStatus struct {
	State      RunState   `json:"state"`
	VerifyDate *time.Time `json:"verify_date,omitempty"`
}

// Run is a single leaderboard submission.
type Run struct {
	ID      string        `json:"id"`
	Time    time.Duration `json:"time"`
	Date    *time.Time    `json:"date,omitempty"`
	Status  RunStatus     `json:"status"`
	Runners []string      `json:"runners"`
	WebLink string        `json:"weblink,omitempty"`
	Videos  []string      `json:"videos,omitempty"`
}

// CloneRuns returns a copy of runs whose slices can be modified freely.
func CloneRuns(runs []Run) []Run {
	if runs == nil {
		return nil
	}
	out := make([]Run, len(runs))
	for i, r := range runs {
		r.Runners = slices.Clone(r.Runners)
		r.Videos = slices.Clone(r.Videos)
		out[i] = r
	}
	return out
}
