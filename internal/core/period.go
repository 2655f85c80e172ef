package core

import (
	"fmt"
	"regexp"
	"time"
)

// Period identifies one calendar-month accounting window.
//
// Two string forms exist: the internal form ("2025_01") used in storage file
// names and ledger files, and the external form ("2025-01") used at the API
// boundary. Both round-trip exactly.
type Period struct {
	Year  int
	Month time.Month
}

var periodPattern = regexp.MustCompile(`^\d{4}[-_](0[1-9]|1[0-2])$`)

// PeriodOf returns the period containing the given instant.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func parsePeriod(s, sep string) (Period, error) {
	if !periodPattern.MatchString(s) || s[4:5] != sep {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	t, err := time.Parse("2006"+sep+"01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

// ParsePeriodExternal parses the hyphenated API form ("2025-01").
func ParsePeriodExternal(s string) (Period, error) {
	return parsePeriod(s, "-")
}

// ParsePeriodInternal parses the underscore storage form ("2025_01").
func ParsePeriodInternal(s string) (Period, error) {
	return parsePeriod(s, "_")
}

// External returns the hyphenated form used at the API boundary.
func (p Period) External() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Internal returns the underscore form used at the storage boundary.
func (p Period) Internal() string {
	return fmt.Sprintf("%04d_%02d", p.Year, int(p.Month))
}

// Label returns a human-readable name such as "January 2025".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Month.String(), p.Year)
}

func (p Period) String() string { return p.Internal() }

func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

// Start returns the first instant of the period (inclusive).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.Local)
}

// End returns the first instant of the following period (exclusive).
func (p Period) End() time.Time {
	return p.Next().Start()
}

// Days returns the number of days in the period's month.
func (p Period) Days() int {
	return int(p.End().Sub(p.Start()).Hours() / 24)
}

// Contains reports whether the instant falls in [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

// Previous returns the preceding period. The second return value is false
// once the calendar runs out (before 1970).
func (p Period) Previous() (Period, bool) {
	prev := PeriodOf(p.Start().AddDate(0, -1, 0))
	if prev.Year < 1970 {
		return Period{}, false
	}
	return prev, true
}

// Next returns the following period.
func (p Period) Next() Period {
	return PeriodOf(time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, 0))
}

// Before reports whether p is chronologically earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// MarshalJSON writes the internal form, matching the ledger file format.
func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.Internal() + `"`), nil
}

// UnmarshalJSON accepts either string form; legacy files may hold either.
func (p *Period) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, s)
	}
	s = s[1 : len(s)-1]
	parsed, err := ParsePeriodInternal(s)
	if err != nil {
		parsed, err = ParsePeriodExternal(s)
	}
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Progress describes how far through a period a given instant is. For a
// historical period the day index is pinned to the final day and no days
// remain.
type Progress struct {
	DaysInPeriod  int  `json:"days_in_period"`
	DayIndex      int  `json:"day_index"`
	DaysRemaining int  `json:"days_remaining"`
	IsCurrent     bool `json:"is_current"`
}

// ProgressAt computes the period progress as seen from now.
func (p Period) ProgressAt(now time.Time) Progress {
	days := p.Days()
	if PeriodOf(now) != p {
		return Progress{DaysInPeriod: days, DayIndex: days, DaysRemaining: 0, IsCurrent: false}
	}
	return Progress{
		DaysInPeriod:  days,
		DayIndex:      now.Day(),
		DaysRemaining: max(0, days-now.Day()),
		IsCurrent:     true,
	}
}
