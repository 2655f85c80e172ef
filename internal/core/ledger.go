package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType distinguishes the two kinds of ledger entries.
type EntryType string

const (
	EntryExpense EntryType = "expense"
	EntryIncome  EntryType = "income"
)

// Entry is a single expense or income in a ledger's history.
type Entry struct {
	ID          string          `json:"id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Source      string          `json:"source,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// Time parses the entry's timestamp.
func (e *Entry) Time() (time.Time, bool) {
	return ParseTimestamp(e.Timestamp)
}

// Goal is a savings goal carried forward from period to period.
type Goal struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	SavedAmount  decimal.Decimal `json:"saved_amount"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"created_at"`
}

// Ledger is the complete persisted financial state for one user in one
// period. History holds expenses and incomes interleaved, newest first.
// MonthlySpent and Remaining are recomputed from History on every load and
// mutation; the stored values are never trusted.
type Ledger struct {
	UserID             string                                `json:"user_id"`
	Currency           string                                `json:"currency"`
	Budget             decimal.Decimal                       `json:"budget"`
	MonthlySpent       decimal.Decimal                       `json:"monthly_spent"`
	Remaining          decimal.Decimal                       `json:"remaining"`
	History            []*Entry                              `json:"history"`
	Incomes            []*Entry                              `json:"incomes"`
	Goals              []*Goal                               `json:"goals"`
	CategoryBudgets    map[string]decimal.Decimal            `json:"category_budgets"`
	SubcategoryBudgets map[string]map[string]decimal.Decimal `json:"subcategory_budgets"`
	Settings           map[string]any                        `json:"settings"`
	ActiveIcons        []string                              `json:"active_icons"`
	MerchantRules      map[string]string                     `json:"merchant_rules"`
	Period             Period                                `json:"period"`
	PreviousPeriod     *Period                               `json:"previous_period"`
	PeriodStartedAt    string                                `json:"period_started_at,omitempty"`
}

// NewEntryID returns a fresh unique entry/goal identifier.
func NewEntryID() string { return uuid.NewString() }

// Expenses returns the expense entries from History, in stored order.
func (l *Ledger) Expenses() []*Entry {
	var out []*Entry
	for _, e := range l.History {
		if e.Type == EntryExpense {
			out = append(out, e)
		}
	}
	return out
}

// AllIncomes merges income entries from History with the legacy Incomes
// list, de-duplicated by id. History is the canonical location; the legacy
// list exists only so old ledger files keep working.
func (l *Ledger) AllIncomes() []*Entry {
	seen := make(map[string]struct{})
	var out []*Entry
	for _, e := range l.History {
		if e.Type == EntryIncome {
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	for _, e := range l.Incomes {
		if _, dup := seen[e.ID]; !dup {
			out = append(out, e)
		}
	}
	return out
}

// FindExpense returns the expense with the given id, or nil.
func (l *Ledger) FindExpense(id string) *Entry {
	for _, e := range l.History {
		if e.ID == id && e.Type == EntryExpense {
			return e
		}
	}
	return nil
}

// FindIncome returns the income with the given id from both storage
// locations; either result may be nil.
func (l *Ledger) FindIncome(id string) (history, legacy *Entry) {
	for _, e := range l.History {
		if e.ID == id && e.Type == EntryIncome {
			history = e
			break
		}
	}
	for _, e := range l.Incomes {
		if e.ID == id {
			legacy = e
			break
		}
	}
	return history, legacy
}

// FindGoal returns the goal with the given id, or nil.
func (l *Ledger) FindGoal(id string) *Goal {
	for _, g := range l.Goals {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Prepend inserts an entry at the front of History; newest-first is the
// canonical list order.
func (l *Ledger) Prepend(e *Entry) {
	l.History = append([]*Entry{e}, l.History...)
}

func removeEntry(entries []*Entry, id string, typ EntryType) ([]*Entry, bool) {
	for i, e := range entries {
		if e.ID == id && (typ == "" || e.Type == typ) {
			return append(entries[:i:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

// RemoveExpense deletes the expense with the given id from History.
func (l *Ledger) RemoveExpense(id string) bool {
	history, ok := removeEntry(l.History, id, EntryExpense)
	l.History = history
	return ok
}

// RemoveIncome deletes the income with the given id from whichever
// location(s) contain it.
func (l *Ledger) RemoveIncome(id string) bool {
	history, inHistory := removeEntry(l.History, id, EntryIncome)
	l.History = history
	legacy, inLegacy := removeEntry(l.Incomes, id, "")
	l.Incomes = legacy
	return inHistory || inLegacy
}

// RemoveGoal deletes the goal with the given id.
func (l *Ledger) RemoveGoal(id string) bool {
	for i, g := range l.Goals {
		if g.ID == id {
			l.Goals = append(l.Goals[:i:i], l.Goals[i+1:]...)
			return true
		}
	}
	return false
}

// CloneConfig deep-copies the carry-forward fields of a ledger: goals,
// budgets, settings, active icons, merchant rules and currency. Transactions
// are never cloned; a new period starts with an empty history.
func (l *Ledger) CloneConfig() *Ledger {
	clone := &Ledger{
		UserID:             l.UserID,
		Currency:           l.Currency,
		Budget:             l.Budget,
		CategoryBudgets:    make(map[string]decimal.Decimal, len(l.CategoryBudgets)),
		SubcategoryBudgets: make(map[string]map[string]decimal.Decimal, len(l.SubcategoryBudgets)),
		Settings:           make(map[string]any, len(l.Settings)),
		MerchantRules:      make(map[string]string, len(l.MerchantRules)),
		ActiveIcons:        append([]string(nil), l.ActiveIcons...),
	}
	for k, v := range l.CategoryBudgets {
		clone.CategoryBudgets[k] = v
	}
	for k, subs := range l.SubcategoryBudgets {
		inner := make(map[string]decimal.Decimal, len(subs))
		for sk, sv := range subs {
			inner[sk] = sv
		}
		clone.SubcategoryBudgets[k] = inner
	}
	for k, v := range l.Settings {
		clone.Settings[k] = v
	}
	for k, v := range l.MerchantRules {
		clone.MerchantRules[k] = v
	}
	for _, g := range l.Goals {
		copied := *g
		clone.Goals = append(clone.Goals, &copied)
	}
	return clone
}
