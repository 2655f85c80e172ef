package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/catalog"
	"xubudget/internal/core"
	"xubudget/internal/log"
	"xubudget/internal/report"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cat := catalog.Default()
	logger := log.New(log.Config{Component: "test"})
	s, err := NewStore(t.TempDir(), cat, report.New(cat), "CAD", logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestFreshLedgerNoTemplate(t *testing.T) {
	s := newTestStore(t)
	p, _ := core.ParsePeriodExternal("2025-01")

	l, err := s.Load("bob", p, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !l.Budget.IsZero() {
		t.Fatalf("fresh budget = %s, want 0", l.Budget)
	}
	if len(l.History) != 0 || l.PreviousPeriod != nil {
		t.Fatalf("history=%d previous=%v", len(l.History), l.PreviousPeriod)
	}
	if l.Currency != "CAD" || l.Settings["budget_mode"] != "standard" {
		t.Fatalf("defaults: currency=%q settings=%v", l.Currency, l.Settings)
	}
	if !s.HasPeriod("bob", p) {
		t.Fatal("fresh ledger must be persisted")
	}
	if l.PeriodStartedAt == "" {
		t.Fatal("period_started_at not defaulted")
	}
}

func TestMissingPeriodWithoutCreate(t *testing.T) {
	s := newTestStore(t)
	p, _ := core.ParsePeriodExternal("2025-01")
	if _, err := s.Load("bob", p, false); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCarryForwardFromPreviousPeriod(t *testing.T) {
	s := newTestStore(t)
	p1, _ := core.ParsePeriodExternal("2025-05")
	p2 := p1.Next()

	l1, err := s.Load("alice", p1, true)
	if err != nil {
		t.Fatalf("load p1: %v", err)
	}
	l1.Budget = decimal.NewFromInt(500)
	l1.CategoryBudgets["food_dining"] = decimal.NewFromInt(300)
	l1.Goals = append(l1.Goals, &core.Goal{
		ID: core.NewEntryID(), Name: "Trip", TargetAmount: decimal.NewFromInt(1000), Status: "active",
	})
	l1.MerchantRules["starbucks"] = "coffee"
	l1.History = append(l1.History, &core.Entry{
		ID: core.NewEntryID(), Type: core.EntryExpense,
		Amount: decimal.NewFromInt(50), Timestamp: core.Timestamp(p1.Start().Add(time.Hour)),
	})
	if err := s.Save(l1); err != nil {
		t.Fatalf("save p1: %v", err)
	}

	l2, err := s.Load("alice", p2, true)
	if err != nil {
		t.Fatalf("load p2: %v", err)
	}
	if !l2.CategoryBudgets["food_dining"].Equal(decimal.NewFromInt(300)) {
		t.Fatalf("category budgets not carried: %v", l2.CategoryBudgets)
	}
	if len(l2.Goals) != 1 || l2.Goals[0].Name != "Trip" {
		t.Fatalf("goals not carried: %v", l2.Goals)
	}
	if l2.MerchantRules["starbucks"] != "coffee" {
		t.Fatal("merchant rules not carried")
	}
	if len(l2.History) != 0 || !l2.MonthlySpent.IsZero() {
		t.Fatalf("spending must reset: history=%d spent=%s", len(l2.History), l2.MonthlySpent)
	}
	if l2.PreviousPeriod == nil || *l2.PreviousPeriod != p1 {
		t.Fatalf("previous period = %v", l2.PreviousPeriod)
	}

	// The new period's config must not alias the old period's file.
	l2.Goals[0].Name = "changed"
	l2.CategoryBudgets["food_dining"] = decimal.NewFromInt(1)
	if err := s.Save(l2); err != nil {
		t.Fatalf("save p2: %v", err)
	}
	l1Again, err := s.Load("alice", p1, false)
	if err != nil {
		t.Fatalf("reload p1: %v", err)
	}
	if l1Again.Goals[0].Name != "Trip" || !l1Again.CategoryBudgets["food_dining"].Equal(decimal.NewFromInt(300)) {
		t.Fatalf("old period mutated: %v %v", l1Again.Goals[0], l1Again.CategoryBudgets)
	}
}

func TestCarryForwardFromLatestExisting(t *testing.T) {
	s := newTestStore(t)
	old, _ := core.ParsePeriodExternal("2025-01")
	target, _ := core.ParsePeriodExternal("2025-06")

	l, err := s.Load("alice", old, true)
	if err != nil {
		t.Fatalf("load old: %v", err)
	}
	l.CategoryBudgets["groceries"] = decimal.NewFromInt(400)
	if err := s.Save(l); err != nil {
		t.Fatalf("save old: %v", err)
	}

	// No 2025-05 file exists; the gap is bridged by the latest prior file.
	got, err := s.Load("alice", target, true)
	if err != nil {
		t.Fatalf("load target: %v", err)
	}
	if !got.CategoryBudgets["groceries"].Equal(decimal.NewFromInt(400)) {
		t.Fatalf("template not used: %v", got.CategoryBudgets)
	}
	// The link points at the template actually used, not the calendar
	// neighbour.
	if got.PreviousPeriod == nil || *got.PreviousPeriod != old {
		t.Fatalf("previous_period = %v, want %s", got.PreviousPeriod, old.Internal())
	}
}

func TestCarryForwardFromLegacyFile(t *testing.T) {
	s := newTestStore(t)
	legacy := map[string]any{
		"user_id":        "carol",
		"currency":       "EUR",
		"merchant_rules": map[string]string{"tims": "coffee"},
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(s.dir, "carol.json"), data, 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	p, _ := core.ParsePeriodExternal("2025-03")
	l, err := s.Load("carol", p, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Currency != "EUR" || l.MerchantRules["tims"] != "coffee" {
		t.Fatalf("legacy template not used: %q %v", l.Currency, l.MerchantRules)
	}
	if l.PreviousPeriod != nil {
		t.Fatalf("legacy file has no period, previous_period = %v", l.PreviousPeriod)
	}
	if l.PeriodStartedAt == "" {
		t.Fatal("period_started_at not set on rollover")
	}
}

func TestCorruptFileDegradesToDefaults(t *testing.T) {
	s := newTestStore(t)
	p, _ := core.ParsePeriodExternal("2025-06")
	path := filepath.Join(s.dir, "alice_2025_06.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	l, err := s.Load("alice", p, false)
	if err != nil {
		t.Fatalf("corrupt read must not fail: %v", err)
	}
	if len(l.History) != 0 || !l.Budget.IsZero() || l.Currency != "CAD" {
		t.Fatalf("expected defaults, got %+v", l)
	}
}

func TestNormalizationFillsEntryDefaults(t *testing.T) {
	s := newTestStore(t)
	p, _ := core.ParsePeriodExternal("2025-06")
	raw := map[string]any{
		"history": []map[string]any{
			{"amount": 10.5, "description": "no id", "category": "Food & Dining"},
		},
	}
	data, _ := json.Marshal(raw)
	if err := os.WriteFile(filepath.Join(s.dir, "alice_2025_06.json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l, err := s.Load("alice", p, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e := l.History[0]
	if e.ID == "" || e.Timestamp == "" || e.Type != core.EntryExpense {
		t.Fatalf("entry not normalized: %+v", e)
	}
	if e.Category != "food_dining" {
		t.Fatalf("category not resolved: %q", e.Category)
	}
}

func TestListPeriods(t *testing.T) {
	s := newTestStore(t)
	for _, ext := range []string{"2025-03", "2025-01", "2025-02"} {
		p, _ := core.ParsePeriodExternal(ext)
		if _, err := s.Load("alice", p, true); err != nil {
			t.Fatalf("load %s: %v", ext, err)
		}
	}
	other, _ := core.ParsePeriodExternal("2025-01")
	if _, err := s.Load("dave", other, true); err != nil {
		t.Fatalf("load dave: %v", err)
	}
	// Non-period files are ignored.
	if err := os.WriteFile(filepath.Join(s.dir, "alice_notes.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write noise: %v", err)
	}

	periods, err := s.ListPeriods("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(periods) != 3 {
		t.Fatalf("len = %d", len(periods))
	}
	want := []string{"2025_01", "2025_02", "2025_03"}
	for i, p := range periods {
		if p.Internal() != want[i] {
			t.Fatalf("order[%d] = %s", i, p.Internal())
		}
	}
}

func TestSanitizeUserID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"alice", "alice"},
		{"../etc/passwd", "_etc_passwd"},
		{"", DefaultUserID},
		{"  ", DefaultUserID},
	}
	for i, tc := range cases {
		if got := SanitizeUserID(tc.in); got != tc.want {
			t.Fatalf("case %d sanitize(%q) = %q", i, tc.in, got)
		}
	}
}
