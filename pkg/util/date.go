package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTime tries YYYY-MM-DD, RFC3339, RFC3339Nano and unix seconds. Returns
// (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TruncateDay returns midnight UTC of t's calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDayRange parses optional from/to bounds into UTC calendar days. An
// empty bound stays zero (open). Unparseable input is an error naming the field.
func ParseDayRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if strings.TrimSpace(from) != "" {
		t, ok := ParseTime(from)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("from: cannot parse %q", from)
		}
		start = TruncateDay(t)
	}
	if strings.TrimSpace(to) != "" {
		t, ok := ParseTime(to)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("to: cannot parse %q", to)
		}
		end = TruncateDay(t)
	}
	return start, end, nil
}
