package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/catalog"
	"xubudget/internal/core"
)

var (
	testPeriod = core.Period{Year: 2025, Month: time.June}
	testNow    = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
)

func newAggregator() *Aggregator {
	return New(catalog.Default())
}

func entryAt(day int, amount float64, category, merchant string) *core.Entry {
	return &core.Entry{
		ID:        core.NewEntryID(),
		Type:      core.EntryExpense,
		Amount:    decimal.NewFromFloat(amount),
		Category:  category,
		Merchant:  merchant,
		Timestamp: core.Timestamp(time.Date(2025, 6, day, 10, 0, 0, 0, time.Local)),
	}
}

func newLedger() *core.Ledger {
	return &core.Ledger{
		UserID:             "alice",
		Currency:           "CAD",
		Period:             testPeriod,
		CategoryBudgets:    map[string]decimal.Decimal{},
		SubcategoryBudgets: map[string]map[string]decimal.Decimal{},
		Settings:           map[string]any{"budget_mode": "standard"},
		MerchantRules:      map[string]string{},
	}
}

func TestRecomputeConservation(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.Budget = decimal.NewFromInt(500)
	l.History = []*core.Entry{entryAt(10, 45.50, "food_dining", "")}

	a.Recompute(l, testNow)

	if l.MonthlySpent.String() != "45.5" {
		t.Fatalf("monthly_spent = %s", l.MonthlySpent)
	}
	if l.Remaining.String() != "454.5" {
		t.Fatalf("remaining = %s", l.Remaining)
	}
	if !l.Remaining.Equal(l.Budget.Sub(l.MonthlySpent)) {
		t.Fatal("conservation violated")
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.Budget = decimal.NewFromInt(500)
	l.History = []*core.Entry{entryAt(10, 45.50, "food_dining", "")}

	a.Recompute(l, testNow)
	spent, remaining := l.MonthlySpent, l.Remaining
	a.Recompute(l, testNow)
	if !l.MonthlySpent.Equal(spent) || !l.Remaining.Equal(remaining) {
		t.Fatalf("second recompute changed values: %s %s", l.MonthlySpent, l.Remaining)
	}
}

func TestRecomputeIgnoresOutOfPeriodEntries(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.History = []*core.Entry{
		entryAt(10, 30, "groceries", ""),
		{
			ID: core.NewEntryID(), Type: core.EntryExpense,
			Amount:    decimal.NewFromInt(99),
			Timestamp: core.Timestamp(time.Date(2025, 5, 31, 23, 0, 0, 0, time.Local)),
		},
	}
	a.Recompute(l, testNow)
	if l.MonthlySpent.String() != "30" {
		t.Fatalf("monthly_spent = %s", l.MonthlySpent)
	}
}

func TestBudgetFallsBackToCategorySum(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.CategoryBudgets["groceries"] = decimal.NewFromInt(400)
	l.CategoryBudgets["coffee"] = decimal.NewFromInt(60)

	a.Recompute(l, testNow)
	if l.Budget.String() != "460" {
		t.Fatalf("budget = %s", l.Budget)
	}
}

func TestIconsOrderingAndSynthesis(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.ActiveIcons = []string{"coffee"}
	l.History = []*core.Entry{
		entryAt(5, 100, "groceries", ""),
		entryAt(6, 50, "petcare", ""),
	}

	totals := a.Recompute(l, testNow)
	icons := totals.Icons
	if icons[0].ID != "coffee" || !icons[0].Active {
		t.Fatalf("active icon not first: %+v", icons[0])
	}
	if icons[1].ID != "groceries" {
		t.Fatalf("highest spend not second: %+v", icons[1])
	}

	found := false
	for _, ic := range icons {
		if ic.ID == "petcare" {
			found = true
			if ic.Name != "Petcare" || ic.Spent.String() != "50" || ic.Transactions != 1 {
				t.Fatalf("synthesized icon = %+v", ic)
			}
		}
	}
	if !found {
		t.Fatal("spend without registry entry must synthesize an icon")
	}
}

func TestDashboardSummary(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.History = []*core.Entry{
		entryAt(10, 45.50, "food_dining", "Subway"),
		entryAt(11, 12, "coffee", "Starbucks"),
		entryAt(12, 8, "coffee", "Starbucks"),
	}

	s := a.DashboardSummary(l, testNow, nil)

	if s.Period != "2025-06" || s.PeriodLabel != "June 2025" {
		t.Fatalf("period fields: %q %q", s.Period, s.PeriodLabel)
	}
	if s.DayIndex != 15 || s.DaysRemaining != 15 || s.DaysInPeriod != 30 || !s.IsCurrentPeriod {
		t.Fatalf("progress: %+v", s)
	}
	if len(s.RecentExpenses) != 3 {
		t.Fatalf("recent expenses = %d", len(s.RecentExpenses))
	}
	if len(s.TopMerchants) == 0 || s.TopMerchants[0].Name != "Starbucks" || s.TopMerchants[0].Count != 2 {
		t.Fatalf("top merchants = %+v", s.TopMerchants)
	}
	if s.PrimaryCategories[0].ID != "food_dining" {
		t.Fatalf("primary ordering = %+v", s.PrimaryCategories[0])
	}
	if !s.AvailableAmount.Equal(s.TotalBudget.Sub(s.TotalSpent)) {
		t.Fatal("summary conservation violated")
	}
	if len(s.AvailablePeriods) != 1 || s.AvailablePeriods[0].ID != "2025-06" {
		t.Fatalf("available periods = %+v", s.AvailablePeriods)
	}
	if s.NextPeriod != "2025-07" {
		t.Fatalf("next period = %q", s.NextPeriod)
	}
}

func TestSafeToSpendFloorsDaysRemaining(t *testing.T) {
	s := Summary{
		AvailableAmount: decimal.NewFromInt(100),
		TotalSpent:      decimal.NewFromInt(400),
		DailyTarget:     decimal.NewFromInt(16),
		DaysRemaining:   0,
	}
	got := BuildSafeToSpend(s)
	if got.SafeToday.String() != "100" {
		t.Fatalf("safe_today = %s", got.SafeToday)
	}
	if got.PredictedMonthEnd.String() != "500" {
		t.Fatalf("predicted = %s", got.PredictedMonthEnd)
	}
	if got.DeltaVsTarget.String() != "84" {
		t.Fatalf("delta = %s", got.DeltaVsTarget)
	}
}

func TestCategoryAnalysis(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.History = []*core.Entry{
		entryAt(3, 10, "coffee", "Starbucks"),
		entryAt(8, 20, "coffee", "Tims"),
		entryAt(9, 500, "groceries", "Metro"),
	}

	got := a.CategoryAnalysis(l, "Coffee", testNow)

	if got.CategoryID != "coffee" || got.Category != "Coffee" {
		t.Fatalf("category fields: %+v", got)
	}
	if got.TransactionCount != 2 || got.MonthSpent.String() != "30" {
		t.Fatalf("totals: count=%d spent=%s", got.TransactionCount, got.MonthSpent)
	}
	if got.AvgTransaction.String() != "15" {
		t.Fatalf("avg = %s", got.AvgTransaction)
	}
	if got.TopMerchants[0].Name != "Tims" {
		t.Fatalf("top merchants by spend: %+v", got.TopMerchants)
	}
	if len(got.RecentTransactions) != 2 || got.RecentTransactions[0].Merchant != "Tims" {
		t.Fatalf("recent: %+v", got.RecentTransactions)
	}
	if got.Spoken != "You used $30 of $60 on Coffee. $30 remaining." {
		t.Fatalf("spoken = %q", got.Spoken)
	}
}

func TestTimelineWindowAndTypes(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.History = []*core.Entry{
		entryAt(12, 25, "groceries", ""),
		{
			ID: core.NewEntryID(), Type: core.EntryIncome,
			Amount:    decimal.NewFromInt(2000),
			Source:    "salary",
			Timestamp: core.Timestamp(time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)),
		},
		{
			ID: core.NewEntryID(), Type: core.EntryExpense,
			Amount:    decimal.NewFromInt(99),
			Timestamp: core.Timestamp(time.Date(2025, 4, 1, 9, 0, 0, 0, time.Local)),
		},
	}

	items := a.Timeline(l, 30, 10, testNow)
	if len(items) != 2 {
		t.Fatalf("timeline len = %d", len(items))
	}
	if items[0].Type != "expense" || items[1].Type != "income" {
		t.Fatalf("ordering/types: %+v", items)
	}
}

func TestPeriodOptions(t *testing.T) {
	apr := core.Period{Year: 2025, Month: time.April}
	may := core.Period{Year: 2025, Month: time.May}
	jun := core.Period{Year: 2025, Month: time.June}

	got := PeriodOptions([]core.Period{apr, jun}, may)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	want := []string{"2025-06", "2025-05", "2025-04"}
	for i, opt := range got {
		if opt.ID != want[i] {
			t.Fatalf("order[%d] = %s", i, opt.ID)
		}
		if opt.IsCurrent != (opt.ID == "2025-05") {
			t.Fatalf("is_current wrong for %s", opt.ID)
		}
	}
}

func TestExpenseListLimitAndOrder(t *testing.T) {
	a := newAggregator()
	l := newLedger()
	l.History = []*core.Entry{
		entryAt(1, 1, "coffee", ""),
		entryAt(20, 3, "coffee", ""),
		entryAt(10, 2, "coffee", ""),
	}

	got := a.ExpenseList(l, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Amount.String() != "3" || got[1].Amount.String() != "2" {
		t.Fatalf("order: %+v", got)
	}
	if got[0].CategoryName != "Coffee" || got[0].Emoji == "" {
		t.Fatalf("display fields: %+v", got[0])
	}
}
