package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/core"
)

// PeriodOption is one selectable period in the period picker.
type PeriodOption struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsCurrent bool   `json:"is_current"`
}

// PeriodOptions renders the picker rows for a set of known periods, newest
// first. The ledger's own period is always present even when no file for it
// exists yet.
func PeriodOptions(available []core.Period, current core.Period) []PeriodOption {
	seen := make(map[core.Period]struct{}, len(available)+1)
	periods := make([]core.Period, 0, len(available)+1)
	for _, p := range append(available, current) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[j].Before(periods[i]) })

	out := make([]PeriodOption, 0, len(periods))
	for _, p := range periods {
		out = append(out, PeriodOption{
			ID:        p.External(),
			Label:     p.Label(),
			IsCurrent: p == current,
		})
	}
	return out
}

// ExpenseView is an expense row in list payloads.
type ExpenseView struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	CategoryName string          `json:"category_name"`
	Emoji        string          `json:"emoji"`
	Merchant     string          `json:"merchant,omitempty"`
	Timestamp    string          `json:"timestamp"`
}

// ExpenseList returns the ledger's expenses newest first, up to limit.
// A non-positive limit returns all of them.
func (a *Aggregator) ExpenseList(l *core.Ledger, limit int) []ExpenseView {
	expenses := l.Expenses()
	sortEntriesByTime(expenses)

	out := make([]ExpenseView, 0, len(expenses))
	for _, e := range expenses {
		if limit > 0 && len(out) == limit {
			break
		}
		desc := a.catalog.Describe(a.catalog.Resolve(e.Category))
		out = append(out, ExpenseView{
			ID:           e.ID,
			Amount:       core.Round2(e.Amount),
			Description:  e.Description,
			Category:     desc.ID,
			CategoryName: desc.Name,
			Emoji:        desc.Emoji,
			Merchant:     e.Merchant,
			Timestamp:    e.Timestamp,
		})
	}
	return out
}

// IncomeView is an income row in list payloads.
type IncomeView struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Source      string          `json:"source,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// IncomeList returns the ledger's incomes from both storage locations,
// newest first, up to limit. A non-positive limit returns all of them.
func (a *Aggregator) IncomeList(l *core.Ledger, limit int) []IncomeView {
	incomes := l.AllIncomes()
	sortEntriesByTime(incomes)

	out := make([]IncomeView, 0, len(incomes))
	for _, e := range incomes {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, IncomeView{
			ID:          e.ID,
			Amount:      core.Round2(e.Amount),
			Description: e.Description,
			Source:      e.Source,
			Timestamp:   e.Timestamp,
		})
	}
	return out
}

func sortEntriesByTime(entries []*core.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, iok := entries[i].Time()
		tj, jok := entries[j].Time()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}

// TimelineItem is one event in the mixed expense/income timeline.
type TimelineItem struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Source      string          `json:"source,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// Timeline returns history events from the trailing window of days, newest
// first, up to limit entries. Entries without a parseable timestamp are
// skipped.
func (a *Aggregator) Timeline(l *core.Ledger, days, limit int, now time.Time) []TimelineItem {
	if days <= 0 {
		days = 30
	}
	cutoff := now.AddDate(0, 0, -days)

	history := append([]*core.Entry(nil), l.History...)
	for _, e := range l.AllIncomes() {
		if h, _ := l.FindIncome(e.ID); h == nil {
			history = append(history, e)
		}
	}
	sortEntriesByTime(history)

	out := make([]TimelineItem, 0, limit)
	for _, e := range history {
		if limit > 0 && len(out) == limit {
			break
		}
		ts, ok := e.Time()
		if !ok || ts.Before(cutoff) {
			continue
		}
		typ := e.Type
		if typ == "" {
			typ = core.EntryExpense
		}
		out = append(out, TimelineItem{
			ID:          e.ID,
			Type:        string(typ),
			Amount:      core.Round2(e.Amount),
			Description: e.Description,
			Category:    e.Category,
			Merchant:    e.Merchant,
			Source:      e.Source,
			Timestamp:   e.Timestamp,
		})
	}
	return out
}

// PublicState is the full ledger payload returned by the state endpoints:
// the persisted fields plus every derived view the UI needs to render a
// period without further calls.
type PublicState struct {
	UserID             string                                `json:"user_id"`
	Currency           string                                `json:"currency"`
	Budget             decimal.Decimal                       `json:"budget"`
	MonthlySpent       decimal.Decimal                       `json:"monthly_spent"`
	Remaining          decimal.Decimal                       `json:"remaining"`
	History            []*core.Entry                         `json:"history"`
	Incomes            []*core.Entry                         `json:"incomes"`
	Goals              []*core.Goal                          `json:"goals"`
	CategoryBudgets    map[string]decimal.Decimal            `json:"category_budgets"`
	SubcategoryBudgets map[string]map[string]decimal.Decimal `json:"subcategory_budgets"`
	Settings           map[string]any                        `json:"settings"`
	ActiveIcons        []string                              `json:"active_icons"`
	MerchantRules      map[string]string                     `json:"merchant_rules"`
	Icons              []IconView                            `json:"icons"`
	Period             string                                `json:"period"`
	PreviousPeriod     string                                `json:"previous_period,omitempty"`
	NextPeriod         string                                `json:"next_period"`
	PeriodLabel        string                                `json:"period_label"`
	PeriodStart        string                                `json:"period_start"`
	PeriodStartedAt    string                                `json:"period_started_at,omitempty"`
	DaysInPeriod       int                                   `json:"days_in_period"`
	DayIndex           int                                   `json:"day_index"`
	DaysRemaining      int                                   `json:"days_remaining"`
	IsCurrentPeriod    bool                                  `json:"is_current_period"`
	AvailablePeriods   []PeriodOption                        `json:"available_periods"`
}

// BuildPublicState recomputes the ledger and renders it for API responses.
func (a *Aggregator) BuildPublicState(l *core.Ledger, now time.Time, available []core.Period) PublicState {
	totals := a.Recompute(l, now)
	progress := l.Period.ProgressAt(now)

	s := PublicState{
		UserID:             l.UserID,
		Currency:           l.Currency,
		Budget:             l.Budget,
		MonthlySpent:       l.MonthlySpent,
		Remaining:          l.Remaining,
		History:            emptyIfNilEntries(l.History),
		Incomes:            emptyIfNilEntries(l.Incomes),
		Goals:              emptyIfNilGoals(l.Goals),
		CategoryBudgets:    l.CategoryBudgets,
		SubcategoryBudgets: l.SubcategoryBudgets,
		Settings:           l.Settings,
		ActiveIcons:        emptyIfNilStrings(l.ActiveIcons),
		MerchantRules:      l.MerchantRules,
		Icons:              totals.Icons,
		Period:             l.Period.External(),
		NextPeriod:         l.Period.Next().External(),
		PeriodLabel:        l.Period.Label(),
		PeriodStart:        core.Timestamp(l.Period.Start()),
		PeriodStartedAt:    l.PeriodStartedAt,
		DaysInPeriod:       progress.DaysInPeriod,
		DayIndex:           progress.DayIndex,
		DaysRemaining:      progress.DaysRemaining,
		IsCurrentPeriod:    progress.IsCurrent,
		AvailablePeriods:   PeriodOptions(available, l.Period),
	}
	if l.PreviousPeriod != nil {
		s.PreviousPeriod = l.PreviousPeriod.External()
	}
	return s
}

func emptyIfNilEntries(in []*core.Entry) []*core.Entry {
	if in == nil {
		return []*core.Entry{}
	}
	return in
}

func emptyIfNilGoals(in []*core.Goal) []*core.Goal {
	if in == nil {
		return []*core.Goal{}
	}
	return in
}

func emptyIfNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
