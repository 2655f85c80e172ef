package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"xubudget/internal/core"
	"xubudget/internal/log"
	"xubudget/internal/report"
)

func (s *BudgetService) knownPeriods(userID string) []core.Period {
	periods, err := s.store.ListPeriods(userID)
	if err != nil {
		s.logger.Warn("period listing failed", log.FieldUserID, userID, log.FieldError, err.Error())
		return nil
	}
	return periods
}

// State returns the full ledger payload for one period. createIfMissing
// controls whether a missing period triggers the rollover; viewing an
// arbitrary historical period must not create files.
func (s *BudgetService) State(ctx context.Context, userID string, period core.Period, createIfMissing bool) (report.PublicState, error) {
	l, err := s.store.Load(userID, period, createIfMissing)
	if err != nil {
		return report.PublicState{}, err
	}
	return s.reports.BuildPublicState(l, s.now(), s.knownPeriods(userID)), nil
}

// Summary returns the dashboard payload for one period.
func (s *BudgetService) Summary(ctx context.Context, userID string, period core.Period, createIfMissing bool) (report.Summary, error) {
	l, err := s.store.Load(userID, period, createIfMissing)
	if err != nil {
		return report.Summary{}, err
	}
	return s.reports.DashboardSummary(l, s.now(), s.knownPeriods(userID)), nil
}

// SafeToSpend returns the daily allowance projection for one period.
func (s *BudgetService) SafeToSpend(ctx context.Context, userID string, period core.Period, createIfMissing bool) (report.SafeToSpend, error) {
	summary, err := s.Summary(ctx, userID, period, createIfMissing)
	if err != nil {
		return report.SafeToSpend{}, err
	}
	return report.BuildSafeToSpend(summary), nil
}

// DailyBriefing returns the one-line status sentence for one period.
func (s *BudgetService) DailyBriefing(ctx context.Context, userID string, period core.Period) (string, error) {
	summary, err := s.Summary(ctx, userID, period, true)
	if err != nil {
		return "", err
	}
	return report.DailyBriefing(summary), nil
}

// Analysis returns the deep-dive for one category in one period.
func (s *BudgetService) Analysis(ctx context.Context, userID string, period core.Period, category string) (report.Analysis, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return report.Analysis{}, err
	}
	return s.reports.CategoryAnalysis(l, category, s.now()), nil
}

// Timeline returns recent history events for one period.
func (s *BudgetService) Timeline(ctx context.Context, userID string, period core.Period, days, limit int) ([]report.TimelineItem, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	return s.reports.Timeline(l, days, limit, s.now()), nil
}

// Expenses returns the period's expenses, newest first.
func (s *BudgetService) Expenses(ctx context.Context, userID string, period core.Period, limit int) ([]report.ExpenseView, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	return s.reports.ExpenseList(l, limit), nil
}

// Incomes returns the period's incomes, newest first.
func (s *BudgetService) Incomes(ctx context.Context, userID string, period core.Period, limit int) ([]report.IncomeView, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	return s.reports.IncomeList(l, limit), nil
}

// Icons returns the per-category budgeting tiles for one period.
func (s *BudgetService) Icons(ctx context.Context, userID string, period core.Period) ([]report.IconView, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	return s.reports.Recompute(l, s.now()).Icons, nil
}

// PeriodSummary is one row in the period picker: the period identity plus
// its headline dashboard stats.
type PeriodSummary struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	IsCurrent       bool            `json:"is_current"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
	DaysRemaining   int             `json:"days_remaining"`
}

// Periods lists every period known for the user, newest first, including
// the current calendar period even before its file exists, each with its
// summary stats.
func (s *BudgetService) Periods(ctx context.Context, userID string) []PeriodSummary {
	options := report.PeriodOptions(s.knownPeriods(userID), core.PeriodOf(s.now()))
	out := make([]PeriodSummary, 0, len(options))
	for _, opt := range options {
		p, err := core.ParsePeriodExternal(opt.ID)
		if err != nil {
			continue
		}
		summary, err := s.Summary(ctx, userID, p, opt.IsCurrent)
		if err != nil {
			s.logger.Warn("period summary skipped",
				log.FieldUserID, userID,
				log.FieldPeriod, p.Internal(),
				log.FieldError, err.Error())
			continue
		}
		out = append(out, PeriodSummary{
			ID:              opt.ID,
			Label:           opt.Label,
			IsCurrent:       opt.IsCurrent,
			TotalBudget:     summary.TotalBudget,
			TotalSpent:      summary.TotalSpent,
			AvailableAmount: summary.AvailableAmount,
			DaysRemaining:   summary.DaysRemaining,
		})
	}
	return out
}

// HasPeriod reports whether a ledger file exists for the period.
func (s *BudgetService) HasPeriod(userID string, period core.Period) bool {
	return s.store.HasPeriod(userID, period)
}

// CurrentPeriod returns the calendar period containing now.
func (s *BudgetService) CurrentPeriod() core.Period {
	return core.PeriodOf(s.now())
}

// BudgetLine is one category in the budget structure payload.
type BudgetLine struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Emoji         string                     `json:"emoji"`
	Budget        decimal.Decimal            `json:"budget"`
	Active        bool                       `json:"active"`
	Subcategories map[string]decimal.Decimal `json:"subcategories,omitempty"`
}

// BudgetStructure describes the full configured budget for one period.
type BudgetStructure struct {
	Period     string          `json:"period"`
	BudgetMode string          `json:"budget_mode"`
	Total      decimal.Decimal `json:"total"`
	Categories []BudgetLine    `json:"categories"`
}

// Structure returns the configured budget tree for one period.
func (s *BudgetService) Structure(ctx context.Context, userID string, period core.Period) (BudgetStructure, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return BudgetStructure{}, err
	}

	active := make(map[string]bool, len(l.ActiveIcons))
	for _, id := range l.ActiveIcons {
		active[id] = true
	}

	seen := make(map[string]bool)
	var lines []BudgetLine
	addLine := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		desc := s.catalog.Describe(id)
		budget := desc.Budget
		if b, ok := l.CategoryBudgets[id]; ok {
			budget = b
		}
		line := BudgetLine{
			ID:     id,
			Name:   desc.Name,
			Emoji:  desc.Emoji,
			Budget: core.Round2(budget),
			Active: active[id],
		}
		if subs := l.SubcategoryBudgets[id]; len(subs) > 0 {
			line.Subcategories = subs
		}
		lines = append(lines, line)
	}
	for _, cat := range s.catalog.All() {
		addLine(cat.ID)
	}
	var extras []string
	for id := range l.CategoryBudgets {
		if !seen[id] {
			extras = append(extras, id)
		}
	}
	sort.Strings(extras)
	for _, id := range extras {
		addLine(id)
	}

	mode, _ := l.Settings["budget_mode"].(string)
	if mode == "" {
		mode = "standard"
	}
	return BudgetStructure{
		Period:     l.Period.External(),
		BudgetMode: mode,
		Total:      l.Budget,
		Categories: lines,
	}, nil
}

// CategoryInfo is one category registry row in API payloads.
type CategoryInfo struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Emoji  string          `json:"emoji"`
	Budget decimal.Decimal `json:"budget"`
}

// Categories returns the category registry.
func (s *BudgetService) Categories() []CategoryInfo {
	cats := s.catalog.All()
	out := make([]CategoryInfo, 0, len(cats))
	for _, cat := range cats {
		out = append(out, CategoryInfo{ID: cat.ID, Name: cat.Name, Emoji: cat.Emoji, Budget: cat.Budget})
	}
	return out
}
