package core

import (
	"strings"
	"time"
)

// Entry timestamps are stored as strings because historical ledger files mix
// zoned and naive ISO-8601 values. Parsing is tolerant; values that cannot be
// parsed simply fall outside every period window.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a stored entry timestamp. Naive values are taken in
// local time, matching how they were written.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i < 2 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, strings.TrimSuffix(s, "Z"), time.Local)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Timestamp formats an instant the way new entries record it.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
