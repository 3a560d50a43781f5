// Package report turns resolved record sets into the per-game summary of
// new records the viewer has not watched yet.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
)

// ResolveFunc resolves one category of one game.
type ResolveFunc func(ctx context.Context, game, category string) ([]model.Run, error)

// Presenter picks the run to show from a record set, or hides the category.
// watch.Store implements it.
type Presenter interface {
	Present(records []model.Run, now time.Time) (model.Run, bool)
}

// Entry is one category with a presentable record.
type Entry struct {
	Category string    `json:"category"`
	Time     string    `json:"time"`
	Run      model.Run `json:"run"`
}

// Section groups the entries of one game, fastest first.
type Section struct {
	Game    string             `json:"game"`
	Title   string             `json:"title"`
	Fastest time.Duration      `json:"fastest_ns"`
	Entries []Entry            `json:"entries"`
	Sources []model.SourceGame `json:"sources,omitempty"`
}

// Failure is a category that could not be resolved.
type Failure struct {
	Game     string `json:"game"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Report is the outcome of one pass over every configured category.
type Report struct {
	Pass          string               `json:"pass,omitempty"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Total         int                  `json:"total"`
	Notifications []model.Notification `json:"notifications,omitempty"`
	Sections      []Section            `json:"sections"`
	Failures      []Failure            `json:"failures,omitempty"`
}

// AddNotifications lists the unread notifications and counts them in Total.
func (r *Report) AddNotifications(notes []model.Notification) {
	for _, n := range notes {
		if n.Read {
			continue
		}
		r.Notifications = append(r.Notifications, n)
		r.Total++
	}
}

// Build resolves every category of every game and applies the presentation
// policy. Games without entries are omitted; sections are ordered by their
// fastest entry, ties keeping configuration order. A failed category is
// listed in Failures and does not stop the rest of the report.
func Build(ctx context.Context, games []model.Game, resolve ResolveFunc, policy Presenter, now time.Time) Report {
	rep := Report{GeneratedAt: now, Sections: []Section{}}
	for _, g := range games {
		sec := Section{Game: g.Name, Title: g.Title()}
		for _, name := range categoryNames(g) {
			records, err := resolve(ctx, g.Name, name)
			if err != nil {
				rep.Failures = append(rep.Failures, Failure{Game: g.Name, Category: name, Error: err.Error()})
				continue
			}
			run, ok := policy.Present(records, now)
			if !ok {
				continue
			}
			sec.Entries = append(sec.Entries, Entry{Category: name, Time: FormatDuration(run.Time), Run: run})
		}
		if len(sec.Entries) == 0 {
			continue
		}
		sort.SliceStable(sec.Entries, func(i, j int) bool {
			return sec.Entries[i].Run.Time < sec.Entries[j].Run.Time
		})
		sec.Fastest = sec.Entries[0].Run.Time
		rep.Total += len(sec.Entries)
		rep.Sections = append(rep.Sections, sec)
	}
	sort.SliceStable(rep.Sections, func(i, j int) bool {
		return rep.Sections[i].Fastest < rep.Sections[j].Fastest
	})
	return rep
}

func categoryNames(g model.Game) []string {
	names := make([]string, 0, len(g.Categories))
	for name := range g.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatDuration renders a run time the way leaderboards show it, e.g.
// "42s", "1m 05s", "1h 02m 03.500s". Sub-second parts use the shortest of
// millisecond, microsecond or nanosecond precision that is exact.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	secs := int64(d / time.Second)
	var b strings.Builder
	switch {
	case d >= time.Hour:
		fmt.Fprintf(&b, "%dh %02dm %02d", secs/3600, secs%3600/60, secs%60)
	case d >= time.Minute:
		fmt.Fprintf(&b, "%dm %02d", secs/60, secs%60)
	default:
		fmt.Fprintf(&b, "%d", secs)
	}
	if ns := int64(d % time.Second); ns > 0 {
		switch {
		case ns%int64(time.Millisecond) == 0:
			fmt.Fprintf(&b, ".%03d", ns/int64(time.Millisecond))
		case ns%int64(time.Microsecond) == 0:
			fmt.Fprintf(&b, ".%06d", ns/int64(time.Microsecond))
		default:
			fmt.Fprintf(&b, ".%09d", ns)
		}
	}
	b.WriteString("s")
	return b.String()
}
