// Package report derives every computed view of a ledger: recomputed
// totals, the dashboard summary, safe-to-spend projections and category
// deep-dives. Everything here is a pure function of (ledger, now); no data
// is ever persisted from this package.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/catalog"
	"xubudget/internal/core"
)

// Categories shown in the dashboard's primary budget strip. When none of
// these exist in the registry the top-8-by-spend categories take their
// place.
var defaultPrimaryNames = []string{
	"Groceries",
	"Food & Dining",
	"Rent/Mortgage",
	"Transport Apps",
	"Electricity",
	"Internet/Phone",
	"Entertainment",
	"Shopping",
}

const (
	topMerchantCount   = 5
	recentExpenseCount = 8
	primaryCategoryMax = 8
)

// Aggregator computes derived views. Stateless and safe for concurrent use.
type Aggregator struct {
	catalog      *catalog.Catalog
	primaryNames []string
}

func New(cat *catalog.Catalog) *Aggregator {
	return &Aggregator{catalog: cat, primaryNames: defaultPrimaryNames}
}

// CategoryTotal is the in-period spend for one category.
type CategoryTotal struct {
	Spent        decimal.Decimal `json:"spent"`
	Transactions int             `json:"transactions"`
}

// IconView is the per-category budgeting tile: registry metadata joined
// with the period's spend and the user's activation flag.
type IconView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Emoji        string          `json:"emoji"`
	Budget       decimal.Decimal `json:"budget"`
	Spent        decimal.Decimal `json:"spent"`
	Transactions int             `json:"transactions"`
	Active       bool            `json:"active"`
}

// Totals carries everything Recompute derives beyond the ledger's own
// monetary fields.
type Totals struct {
	ByCategory map[string]CategoryTotal
	Merchants  map[string]int
	Icons      []IconView
}

// Recompute recalculates the ledger's derived monetary fields from its
// history, restricted to entries whose timestamp falls inside the ledger's
// period. Stored values of monthly_spent and remaining are never trusted;
// this runs after every load and every mutation, and running it twice in a
// row yields identical results.
func (a *Aggregator) Recompute(l *core.Ledger, now time.Time) *Totals {
	monthly := a.monthlyExpenses(l)

	spent := decimal.Zero
	for _, e := range monthly {
		spent = spent.Add(e.Amount)
	}
	l.MonthlySpent = core.Round2(spent)

	budget := l.Budget
	if budget.IsZero() {
		for _, b := range l.CategoryBudgets {
			budget = budget.Add(b)
		}
	}
	l.Budget = core.Round2(budget)
	l.Remaining = core.Round2(budget.Sub(spent))

	totals := &Totals{
		ByCategory: make(map[string]CategoryTotal),
		Merchants:  make(map[string]int),
	}
	for _, e := range monthly {
		id := e.Category
		if id == "" {
			id = catalog.OtherID
		}
		ct := totals.ByCategory[id]
		ct.Spent = ct.Spent.Add(e.Amount)
		ct.Transactions++
		totals.ByCategory[id] = ct
		totals.Merchants[merchantLabel(e)]++
	}

	totals.Icons = a.buildIcons(l, totals.ByCategory)
	return totals
}

func (a *Aggregator) monthlyExpenses(l *core.Ledger) []*core.Entry {
	var out []*core.Entry
	for _, e := range l.Expenses() {
		ts, ok := e.Time()
		if ok && l.Period.Contains(ts) {
			out = append(out, e)
		}
	}
	return out
}

func merchantLabel(e *core.Entry) string {
	name := e.Merchant
	if name == "" {
		name = e.Description
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

// categoryBudget resolves the budget shown for one category: the ledger's
// override when present, otherwise the registry default.
func (a *Aggregator) categoryBudget(l *core.Ledger, id string) decimal.Decimal {
	if b, ok := l.CategoryBudgets[id]; ok {
		return b
	}
	return a.catalog.Describe(id).Budget
}

func (a *Aggregator) buildIcons(l *core.Ledger, byCategory map[string]CategoryTotal) []IconView {
	active := make(map[string]bool, len(l.ActiveIcons))
	for _, id := range l.ActiveIcons {
		active[id] = true
	}

	var icons []IconView
	for _, cat := range a.catalog.All() {
		ct := byCategory[cat.ID]
		icons = append(icons, IconView{
			ID:           cat.ID,
			Name:         cat.Name,
			Emoji:        cat.Emoji,
			Budget:       core.Round2(a.categoryBudget(l, cat.ID)),
			Spent:        core.Round2(ct.Spent),
			Transactions: ct.Transactions,
			Active:       active[cat.ID],
		})
	}

	// Synthesized categories: spend exists but the registry has no entry.
	var extra []string
	for id := range byCategory {
		if !a.catalog.Known(id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		ct := byCategory[id]
		desc := a.catalog.Describe(id)
		icons = append(icons, IconView{
			ID:           id,
			Name:         desc.Name,
			Emoji:        desc.Emoji,
			Budget:       core.Round2(l.CategoryBudgets[id]),
			Spent:        core.Round2(ct.Spent),
			Transactions: ct.Transactions,
			Active:       active[id],
		})
	}

	sort.SliceStable(icons, func(i, j int) bool {
		if icons[i].Active != icons[j].Active {
			return icons[i].Active
		}
		return icons[i].Spent.GreaterThan(icons[j].Spent)
	})
	return icons
}

// CategorySummary is one row of the dashboard's category breakdown.
type CategorySummary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Emoji        string          `json:"emoji"`
	Budget       decimal.Decimal `json:"budget"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Transactions int             `json:"transactions"`
}

// MerchantCount ranks a merchant by transaction frequency.
type MerchantCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// OverallTotals aggregates every category regardless of the primary subset.
type OverallTotals struct {
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Available decimal.Decimal `json:"available"`
}

// Summary is the dashboard reporting payload.
type Summary struct {
	UserID              string            `json:"user_id"`
	Currency            string            `json:"currency"`
	Period              string            `json:"period"`
	PeriodLabel         string            `json:"period_label"`
	PeriodStart         string            `json:"period_start"`
	PeriodEnd           string            `json:"period_end"`
	DaysInPeriod        int               `json:"days_in_period"`
	DayIndex            int               `json:"day_index"`
	DaysRemaining       int               `json:"days_remaining"`
	IsCurrentPeriod     bool              `json:"is_current_period"`
	PreviousPeriod      string            `json:"previous_period,omitempty"`
	NextPeriod          string            `json:"next_period"`
	AvailablePeriods    []PeriodOption    `json:"available_periods"`
	TotalBudget         decimal.Decimal   `json:"total_budget"`
	TotalSpent          decimal.Decimal   `json:"total_spent"`
	AvailableAmount     decimal.Decimal   `json:"available_amount"`
	DailyPace           decimal.Decimal   `json:"daily_pace"`
	DailyTarget         decimal.Decimal   `json:"daily_target"`
	DailyDeltaPct       decimal.Decimal   `json:"daily_delta_pct"`
	PrimaryCategories   []CategorySummary `json:"primary_categories"`
	SecondaryCategories []CategorySummary `json:"secondary_categories"`
	TopMerchants        []MerchantCount   `json:"top_merchants"`
	RecentExpenses      []ExpenseView     `json:"recent_expenses"`
	OverallTotals       OverallTotals     `json:"overall_totals"`
	PrimaryCategoryIDs  []string          `json:"primary_category_ids"`
}

// DashboardSummary builds the reporting payload for one ledger. The
// available list enumerates every period known for the user; the ledger's
// own period is added if missing.
func (a *Aggregator) DashboardSummary(l *core.Ledger, now time.Time, available []core.Period) Summary {
	totals := a.Recompute(l, now)

	var rows []CategorySummary
	overall := OverallTotals{Budget: decimal.Zero, Spent: decimal.Zero}
	for id, ct := range totals.ByCategory {
		desc := a.catalog.Describe(id)
		budget := a.categoryBudget(l, id)
		rows = append(rows, CategorySummary{
			ID:           id,
			Name:         desc.Name,
			Emoji:        desc.Emoji,
			Budget:       core.Round2(budget),
			Spent:        core.Round2(ct.Spent),
			Remaining:    core.Round2(budget.Sub(ct.Spent)),
			Transactions: ct.Transactions,
		})
		overall.Budget = overall.Budget.Add(budget)
		overall.Spent = overall.Spent.Add(ct.Spent)
	}
	// Budgeted registry categories without spend still appear.
	for _, cat := range a.catalog.All() {
		if _, seen := totals.ByCategory[cat.ID]; seen {
			continue
		}
		budget := a.categoryBudget(l, cat.ID)
		if !budget.IsPositive() {
			continue
		}
		rows = append(rows, CategorySummary{
			ID:        cat.ID,
			Name:      cat.Name,
			Emoji:     cat.Emoji,
			Budget:    core.Round2(budget),
			Spent:     decimal.Zero,
			Remaining: core.Round2(budget),
		})
		overall.Budget = overall.Budget.Add(budget)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Spent.GreaterThan(rows[j].Spent)
	})

	primary := rows
	var secondary []CategorySummary
	if len(rows) > primaryCategoryMax {
		primary = rows[:primaryCategoryMax]
		secondary = rows[primaryCategoryMax:]
	}

	uiBudget, uiSpent := decimal.Zero, decimal.Zero
	var uiIDs []string
	for _, name := range a.primaryNames {
		id := a.catalog.Resolve(name)
		if !a.catalog.Known(id) {
			continue
		}
		uiBudget = uiBudget.Add(a.categoryBudget(l, id))
		uiSpent = uiSpent.Add(totals.ByCategory[id].Spent)
		uiIDs = append(uiIDs, id)
	}
	if len(uiIDs) == 0 {
		for _, row := range primary {
			uiIDs = append(uiIDs, row.ID)
		}
		uiBudget = overall.Budget
		uiSpent = overall.Spent
	}
	available0 := uiBudget.Sub(uiSpent)

	progress := l.Period.ProgressAt(now)
	dayIndex := progress.DayIndex
	if dayIndex == 0 {
		dayIndex = 1
	}
	pace := uiSpent.Div(decimal.NewFromInt(int64(dayIndex)))
	target := decimal.Zero
	if progress.DaysInPeriod > 0 {
		target = uiBudget.Div(decimal.NewFromInt(int64(progress.DaysInPeriod)))
	}
	deltaPct := decimal.Zero
	if target.IsPositive() {
		deltaPct = pace.Sub(target).Div(target).Mul(decimal.NewFromInt(100))
	}

	overall.Available = overall.Budget.Sub(overall.Spent)

	s := Summary{
		UserID:              l.UserID,
		Currency:            l.Currency,
		Period:              l.Period.External(),
		PeriodLabel:         l.Period.Label(),
		PeriodStart:         core.Timestamp(l.Period.Start()),
		PeriodEnd:           core.Timestamp(l.Period.End().Add(-time.Second)),
		DaysInPeriod:        progress.DaysInPeriod,
		DayIndex:            progress.DayIndex,
		DaysRemaining:       progress.DaysRemaining,
		IsCurrentPeriod:     progress.IsCurrent,
		NextPeriod:          l.Period.Next().External(),
		AvailablePeriods:    PeriodOptions(available, l.Period),
		TotalBudget:         core.Round2(uiBudget),
		TotalSpent:          core.Round2(uiSpent),
		AvailableAmount:     core.Round2(available0),
		DailyPace:           core.Round2(pace),
		DailyTarget:         core.Round2(target),
		DailyDeltaPct:       core.Round2(deltaPct),
		PrimaryCategories:   primary,
		SecondaryCategories: secondary,
		TopMerchants:        topMerchants(totals.Merchants, topMerchantCount),
		RecentExpenses:      a.ExpenseList(l, recentExpenseCount),
		OverallTotals: OverallTotals{
			Budget:    core.Round2(overall.Budget),
			Spent:     core.Round2(overall.Spent),
			Available: core.Round2(overall.Available),
		},
		PrimaryCategoryIDs: uiIDs,
	}
	if l.PreviousPeriod != nil {
		s.PreviousPeriod = l.PreviousPeriod.External()
	}
	return s
}

func topMerchants(counts map[string]int, limit int) []MerchantCount {
	out := make([]MerchantCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, MerchantCount{Name: name, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SafeToSpend is the per-day allowance projection.
type SafeToSpend struct {
	SafeToday         decimal.Decimal `json:"safe_today"`
	PredictedMonthEnd decimal.Decimal `json:"predicted_month_end"`
	DeltaVsTarget     decimal.Decimal `json:"delta_vs_target"`
}

// BuildSafeToSpend projects the remaining daily allowance from a summary.
// Days remaining is floored to 1 so the last day of the month never divides
// by zero.
func BuildSafeToSpend(s Summary) SafeToSpend {
	remainingDays := s.DaysRemaining
	if remainingDays < 1 {
		remainingDays = 1
	}
	days := decimal.NewFromInt(int64(remainingDays))
	safeToday := s.AvailableAmount.Div(days)
	return SafeToSpend{
		SafeToday:         core.Round2(safeToday),
		PredictedMonthEnd: core.Round2(s.TotalSpent.Add(safeToday.Mul(days))),
		DeltaVsTarget:     core.Round2(s.AvailableAmount.Sub(s.DailyTarget.Mul(days))),
	}
}

// MerchantTotal ranks a merchant by total spend.
type MerchantTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// AnalysisTransaction is one row in a category deep-dive.
type AnalysisTransaction struct {
	Timestamp   string          `json:"timestamp"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
}

// Analysis is the category deep-dive payload.
type Analysis struct {
	Category           string                `json:"category"`
	CategoryID         string                `json:"category_id"`
	MonthSpent         decimal.Decimal       `json:"month_spent"`
	MonthBudget        decimal.Decimal       `json:"month_budget"`
	TransactionCount   int                   `json:"transaction_count"`
	AvgTransaction     decimal.Decimal       `json:"avg_tx"`
	AvgRecent          decimal.Decimal       `json:"avg_recent"`
	TopMerchants       []MerchantTotal       `json:"top_merchants"`
	RecentTransactions []AnalysisTransaction `json:"recent_transactions"`
	Spoken             string                `json:"spoken"`
}

// CategoryAnalysis builds the deep-dive for one category, restricted to the
// calendar month containing now, with a 90-day trailing average for
// context. Unknown categories and empty histories yield zeroed structures,
// never errors.
func (a *Aggregator) CategoryAnalysis(l *core.Ledger, categoryName string, now time.Time) Analysis {
	id := a.catalog.Resolve(categoryName)
	desc := a.catalog.Describe(id)
	budget := a.categoryBudget(l, id)

	month := core.PeriodOf(now)
	monthStart := month.Start()

	type dated struct {
		ts    time.Time
		entry *core.Entry
	}
	var all []dated
	for _, e := range l.Expenses() {
		ts, ok := e.Time()
		if !ok {
			continue
		}
		if a.catalog.Resolve(e.Category) != id {
			continue
		}
		all = append(all, dated{ts: ts, entry: e})
	}

	var monthly []dated
	monthTotal := decimal.Zero
	for _, d := range all {
		if month.Contains(d.ts) {
			monthly = append(monthly, d)
			monthTotal = monthTotal.Add(d.entry.Amount)
		}
	}

	avgTx := decimal.Zero
	if len(monthly) > 0 {
		avgTx = monthTotal.Div(decimal.NewFromInt(int64(len(monthly))))
	}

	// Trailing 90-day average, normalized by the number of distinct months
	// that actually contain spend.
	cutoff := monthStart.AddDate(0, 0, -90)
	recentTotal := decimal.Zero
	recentMonths := make(map[core.Period]struct{})
	recentSeen := false
	for _, d := range all {
		if d.ts.Before(cutoff) {
			continue
		}
		recentSeen = true
		recentTotal = recentTotal.Add(d.entry.Amount)
		recentMonths[core.PeriodOf(d.ts)] = struct{}{}
	}
	avgRecent := decimal.Zero
	if recentSeen {
		n := len(recentMonths)
		if n == 0 {
			n = 1
		}
		avgRecent = recentTotal.Div(decimal.NewFromInt(int64(n)))
	}

	merchantTotals := make(map[string]decimal.Decimal)
	for _, d := range monthly {
		name := merchantLabel(d.entry)
		merchantTotals[name] = merchantTotals[name].Add(d.entry.Amount)
	}
	top := make([]MerchantTotal, 0, len(merchantTotals))
	for name, total := range merchantTotals {
		top = append(top, MerchantTotal{Name: name, Total: core.Round2(total)})
	}
	sort.SliceStable(top, func(i, j int) bool {
		if !top[i].Total.Equal(top[j].Total) {
			return top[i].Total.GreaterThan(top[j].Total)
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topMerchantCount {
		top = top[:topMerchantCount]
	}

	sort.SliceStable(monthly, func(i, j int) bool { return monthly[i].ts.After(monthly[j].ts) })
	var recent []AnalysisTransaction
	for i, d := range monthly {
		if i == 10 {
			break
		}
		recent = append(recent, AnalysisTransaction{
			Timestamp:   core.Timestamp(d.ts),
			Amount:      core.Round2(d.entry.Amount),
			Description: d.entry.Description,
			Merchant:    d.entry.Merchant,
		})
	}

	remaining := budget.Sub(monthTotal)
	var spoken string
	switch {
	case !budget.IsPositive():
		spoken = fmt.Sprintf("You spent $%s on %s this month.", core.Round2(monthTotal), desc.Name)
	case monthTotal.GreaterThan(budget):
		spoken = fmt.Sprintf("You exceeded the budget for %s by $%s.", desc.Name, core.Round2(remaining.Abs()))
	default:
		spoken = fmt.Sprintf("You used $%s of $%s on %s. $%s remaining.",
			core.Round2(monthTotal), core.Round2(budget), desc.Name, core.Round2(remaining))
	}

	return Analysis{
		Category:           desc.Name,
		CategoryID:         id,
		MonthSpent:         core.Round2(monthTotal),
		MonthBudget:        core.Round2(budget),
		TransactionCount:   len(monthly),
		AvgTransaction:     core.Round2(avgTx),
		AvgRecent:          core.Round2(avgRecent),
		TopMerchants:       top,
		RecentTransactions: recent,
		Spoken:             spoken,
	}
}

// DailyBriefing renders the one-sentence budget status line.
func DailyBriefing(s Summary) string {
	if len(s.PrimaryCategories) > 0 {
		top := s.PrimaryCategories[0]
		pct := decimal.NewFromInt(0)
		if top.Budget.IsPositive() {
			pct = top.Spent.Div(top.Budget).Mul(decimal.NewFromInt(100))
			if pct.GreaterThan(decimal.NewFromInt(100)) {
				pct = decimal.NewFromInt(100)
			}
		}
		return fmt.Sprintf("Biggest expense so far: %s with %s. You used %s%% of this category's budget.",
			top.Name, core.Round2(top.Spent), pct.Round(0))
	}
	if !s.TotalSpent.IsPositive() {
		return "No expenses recorded this month. Great job keeping the budget!"
	}
	return "Keep tracking your expenses to maintain budget control."
}
