package gametime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02 15",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTime accepts a full or partial ISO 8601 date-time. Values without an
// offset are interpreted as UTC. The result is always in UTC.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalidArgument("parse time", "empty date-time")
	}
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, invalidArgument("parse time", "%q is not an ISO 8601 date-time", value)
}

var freqPattern = regexp.MustCompile(`^(\d+)?\s*([A-Za-z]+)$`)

// ParseFreq parses a resampling frequency such as "1D", "6h", "30min" or
// "2W". Plain Go durations ("90m", "1h30m") are accepted too.
func ParseFreq(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if m := freqPattern.FindStringSubmatch(value); m != nil {
		n := 1
		if m[1] != "" {
			var err error
			if n, err = strconv.Atoi(m[1]); err != nil {
				return 0, invalidArgument("parse frequency", "%q: %v", value, err)
			}
		}
		var unit time.Duration
		switch m[2] {
		case "s", "S", "sec":
			unit = time.Second
		case "min", "T":
			unit = time.Minute
		case "h", "H":
			unit = time.Hour
		case "D", "d":
			unit = Day
		case "W", "w":
			unit = Week
		}
		if unit > 0 {
			if n <= 0 {
				return 0, invalidArgument("parse frequency", "%q must be positive", value)
			}
			return time.Duration(n) * unit, nil
		}
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, invalidArgument("parse frequency", "%q is not a positive frequency", value)
	}
	return d, nil
}

// FormatFreq renders d in the compact form accepted by ParseFreq.
func FormatFreq(d time.Duration) string {
	switch {
	case d <= 0:
		return d.String()
	case d%Week == 0:
		return fmt.Sprintf("%dW", d/Week)
	case d%Day == 0:
		return fmt.Sprintf("%dD", d/Day)
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dmin", d/time.Minute)
	default:
		return d.String()
	}
}

// Midnight truncates ts to 00:00:00 UTC of the same day.
func Midnight(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
