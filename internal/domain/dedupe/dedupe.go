// Package dedupe tracks identities already emitted so each appears once.
package dedupe

// Set records seen ids. The zero value is not usable; call New.
// A Set is not safe for concurrent use.
type Set struct {
	seen map[string]struct{}
}

// New creates an empty Set sized for about n ids.
func New(n int) *Set {
	if n < 0 {
		n = 0
	}
	return &Set{seen: make(map[string]struct{}, n)}
}

// SeenAndRecord reports whether id was already recorded, recording it if not.
func (s *Set) SeenAndRecord(id string) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// Size returns the number of recorded ids.
func (s *Set) Size() int {
	return len(s.seen)
}

// Strings returns ids with duplicates removed, keeping first occurrences.
func Strings(ids []string) []string {
	s := New(len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !s.SeenAndRecord(id) {
			out = append(out, id)
		}
	}
	return out
}

// By returns items with duplicate keys removed, keeping first occurrences.
func By[T any](items []T, key func(T) string) []T {
	s := New(len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !s.SeenAndRecord(key(it)) {
			out = append(out, it)
		}
	}
	return out
}
