package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func expense(id string) *Entry {
	return &Entry{ID: id, Type: EntryExpense, Amount: decimal.NewFromInt(10), Timestamp: Timestamp(time.Now())}
}

func income(id string) *Entry {
	return &Entry{ID: id, Type: EntryIncome, Amount: decimal.NewFromInt(10), Timestamp: Timestamp(time.Now())}
}

func TestAllIncomesMergesAndDedupes(t *testing.T) {
	l := &Ledger{
		History: []*Entry{income("a"), expense("x"), income("b")},
		Incomes: []*Entry{income("b"), income("c")},
	}
	got := l.AllIncomes()
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	seen := map[string]bool{}
	for _, e := range got {
		seen[e.ID] = true
	}
	if !seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("missing ids: %v", seen)
	}
}

func TestRemoveIncomeBothLocations(t *testing.T) {
	l := &Ledger{
		History: []*Entry{income("dup")},
		Incomes: []*Entry{income("dup"), income("keep")},
	}
	if !l.RemoveIncome("dup") {
		t.Fatal("expected removal")
	}
	if len(l.History) != 0 || len(l.Incomes) != 1 || l.Incomes[0].ID != "keep" {
		t.Fatalf("history=%d incomes=%v", len(l.History), l.Incomes)
	}
	if l.RemoveIncome("missing") {
		t.Fatal("expected no removal")
	}
}

func TestRemoveExpenseLeavesIncomes(t *testing.T) {
	l := &Ledger{History: []*Entry{expense("e"), income("i")}}
	if l.RemoveExpense("i") {
		t.Fatal("income must not be removable as expense")
	}
	if !l.RemoveExpense("e") || len(l.History) != 1 {
		t.Fatalf("history = %v", l.History)
	}
}

func TestCloneConfigDeepCopies(t *testing.T) {
	orig := &Ledger{
		UserID:   "u",
		Currency: "CAD",
		Budget:   decimal.NewFromInt(500),
		History:  []*Entry{expense("e")},
		Incomes:  []*Entry{income("i")},
		Goals:    []*Goal{{ID: "g", Name: "Trip", TargetAmount: decimal.NewFromInt(1000)}},
		CategoryBudgets: map[string]decimal.Decimal{
			"food_dining": decimal.NewFromInt(300),
		},
		SubcategoryBudgets: map[string]map[string]decimal.Decimal{
			"food_dining": {"lunch": decimal.NewFromInt(100)},
		},
		Settings:      map[string]any{"budget_mode": "standard"},
		ActiveIcons:   []string{"food_dining"},
		MerchantRules: map[string]string{"starbucks": "coffee"},
	}

	clone := orig.CloneConfig()

	if len(clone.History) != 0 || len(clone.Incomes) != 0 {
		t.Fatalf("transactions must not carry over: %d %d", len(clone.History), len(clone.Incomes))
	}
	if !clone.CategoryBudgets["food_dining"].Equal(decimal.NewFromInt(300)) {
		t.Fatalf("category budgets not copied: %v", clone.CategoryBudgets)
	}

	clone.Goals[0].Name = "changed"
	clone.CategoryBudgets["food_dining"] = decimal.NewFromInt(1)
	clone.SubcategoryBudgets["food_dining"]["lunch"] = decimal.NewFromInt(1)
	clone.MerchantRules["starbucks"] = "other"

	if orig.Goals[0].Name != "Trip" {
		t.Fatalf("goal aliased: %q", orig.Goals[0].Name)
	}
	if !orig.CategoryBudgets["food_dining"].Equal(decimal.NewFromInt(300)) {
		t.Fatal("category budget aliased")
	}
	if !orig.SubcategoryBudgets["food_dining"]["lunch"].Equal(decimal.NewFromInt(100)) {
		t.Fatal("subcategory budget aliased")
	}
	if orig.MerchantRules["starbucks"] != "coffee" {
		t.Fatal("merchant rules aliased")
	}
}
