package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParsePeriodExternal(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"2025-01", true, "2025_01"},
		{"2025-12", true, "2025_12"},
		{"2025-13", false, ""},
		{"2025-00", false, ""},
		{"abcd-01", false, ""},
		{"2025_01", false, ""},
		{"2025-1", false, ""},
		{"", false, ""},
	}
	for i, tc := range cases {
		p, err := ParsePeriodExternal(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Fatalf("case %d expected ErrInvalidPeriod, got %v", i, err)
			}
			continue
		}
		if p.Internal() != tc.want {
			t.Fatalf("case %d internal = %q, want %q", i, p.Internal(), tc.want)
		}
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	p, err := ParsePeriodInternal("2025_03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.External() != "2025-03" {
		t.Fatalf("external = %q", p.External())
	}
	back, err := ParsePeriodExternal(p.External())
	if err != nil || back != p {
		t.Fatalf("round trip failed: %v %v", back, err)
	}
}

func TestPeriodNeighbors(t *testing.T) {
	p := Period{Year: 2025, Month: time.January}
	prev, ok := p.Previous()
	if !ok || prev.Internal() != "2024_12" {
		t.Fatalf("previous = %v %v", prev, ok)
	}
	if p.Next().Internal() != "2025_02" {
		t.Fatalf("next = %v", p.Next())
	}
	if _, ok := (Period{Year: 1970, Month: time.January}).Previous(); ok {
		t.Fatalf("expected no previous before 1970")
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{Year: 2025, Month: time.February}
	inside := time.Date(2025, 2, 15, 12, 0, 0, 0, time.Local)
	first := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)
	next := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	if !p.Contains(inside) || !p.Contains(first) {
		t.Fatalf("expected instants in period")
	}
	if p.Contains(next) {
		t.Fatalf("start of next month must be outside")
	}
	if p.Days() != 28 {
		t.Fatalf("feb 2025 days = %d", p.Days())
	}
}

func TestPeriodProgress(t *testing.T) {
	p := Period{Year: 2025, Month: time.June}

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	pr := p.ProgressAt(now)
	if !pr.IsCurrent || pr.DayIndex != 10 || pr.DaysRemaining != 20 || pr.DaysInPeriod != 30 {
		t.Fatalf("current progress = %+v", pr)
	}

	later := time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local)
	pr = p.ProgressAt(later)
	if pr.IsCurrent || pr.DayIndex != 30 || pr.DaysRemaining != 0 {
		t.Fatalf("historical progress = %+v", pr)
	}
}

func TestPeriodJSON(t *testing.T) {
	p := Period{Year: 2025, Month: time.April}
	data, err := json.Marshal(p)
	if err != nil || string(data) != `"2025_04"` {
		t.Fatalf("marshal = %s %v", data, err)
	}

	for i, raw := range []string{`"2025_04"`, `"2025-04"`} {
		var got Period
		if err := json.Unmarshal([]byte(raw), &got); err != nil || got != p {
			t.Fatalf("case %d unmarshal = %v %v", i, got, err)
		}
	}

	var bad Period
	if err := json.Unmarshal([]byte(`"2025/04"`), &bad); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
