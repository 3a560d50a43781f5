package watch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDeferral is how long a run is hidden when no time is given.
const DefaultDeferral = 24 * time.Hour

// ErrInvalidDeferral is returned for a deferral that cannot be parsed or is
// not in the future.
var ErrInvalidDeferral = errors.New("invalid deferral")

// ParseDeferral returns the time a run deferred at now stays hidden until.
// when is empty (DefaultDeferral), a relative offset optionally prefixed
// with "r:" ("7d", "2w", "36h", "r:7d"), an RFC 3339 time, or a date
// (midnight in now's location).
func ParseDeferral(when string, now time.Time) (time.Time, error) {
	when = strings.TrimSpace(when)
	if when == "" {
		return now.Add(DefaultDeferral), nil
	}

	var until time.Time
	if t, err := time.Parse(time.RFC3339, when); err == nil {
		until = t
	} else if t, err := time.ParseInLocation(time.DateOnly, when, now.Location()); err == nil {
		until = t
	} else {
		d, err := parseOffset(strings.TrimPrefix(when, "r:"))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDeferral, when, err)
		}
		until = now.Add(d)
	}
	if !until.After(now) {
		return time.Time{}, fmt.Errorf("%w: %q is not in the future", ErrInvalidDeferral, when)
	}
	return until, nil
}

func parseOffset(s string) (time.Duration, error) {
	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	default:
		return time.ParseDuration(s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}
