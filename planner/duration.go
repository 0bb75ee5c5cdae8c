// Package planner resolves a job's configured filters and time range into
// a concrete, ordered sequence of work units, grounded on the original
// tool's utils.py duration/range helpers (see SPEC_FULL.md §4.5).
package planner

import (
	"regexp"
	"strconv"
	"time"

	"github.com/teranos/tsreplicate/internal/errors"
)

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d|w|M|y)$`)

// ParseDuration parses a "<int><unit>" duration string where unit is one of
// s, m, h, d, w, M (30-day month), y (365-day year). It mirrors the
// approximations the original tool uses for calendar units.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("duration string cannot be empty")
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Newf("invalid duration format: %s", s)
	}
	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration value: %s", s)
	}

	switch m[2] {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case "M":
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	case "y":
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return 0, errors.Newf("unknown duration unit: %s", m[2])
	}
}
