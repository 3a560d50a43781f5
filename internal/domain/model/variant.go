package model

import (
	"sort"
	"strings"
)

// Filter assigns exactly one value id to each variable id it mentions.
// A nil or empty Filter selects the unfiltered leaderboard.
type Filter map[string]string

// Key renders the filter deterministically, e.g. "platform=pc,region=eu".
func (f Filter) Key() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f[k])
	}
	return b.String()
}

// Variant is one concrete leaderboard query.
type Variant struct {
	CategoryID string
	Filter     Filter
	// LevelID is empty for whole-category leaderboards.
	LevelID string
}

// String identifies the variant in logs.
func (v Variant) String() string {
	s := v.CategoryID
	if v.LevelID != "" {
		s += "/" + v.LevelID
	}
	if k := v.Filter.Key(); k != "" {
		s += "?" + k
	}
	return s
}
