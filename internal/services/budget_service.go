// Package services implements the mutation and query operations of the
// budget engine on top of the ledger store. Every mutation follows the
// same shape: load the period's ledger, apply the change, recompute the
// derived fields, persist, then announce the change on the event bus.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/amqp"
	"xubudget/internal/catalog"
	"xubudget/internal/core"
	"xubudget/internal/ledger"
	"xubudget/internal/log"
	"xubudget/internal/report"
)

// EventPublisher announces entry mutations. Publishing is best-effort; a
// broker outage never fails a mutation.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, event *amqp.EntryEvent) error
}

// BudgetService is the application core: all reads and writes against a
// user's ledgers go through it.
type BudgetService struct {
	store   *ledger.Store
	catalog *catalog.Catalog
	reports *report.Aggregator
	events  EventPublisher
	logger  *log.Logger
	now     func() time.Time
}

// NewBudgetService wires the service. events may be nil when no broker is
// configured.
func NewBudgetService(store *ledger.Store, cat *catalog.Catalog, reports *report.Aggregator, events EventPublisher, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:   store,
		catalog: cat,
		reports: reports,
		events:  events,
		logger:  logger.WithComponent(log.ComponentLedger),
		now:     time.Now,
	}
}

func (s *BudgetService) publish(ctx context.Context, l *core.Ledger, e *core.Entry, action string) {
	if s.events == nil {
		return
	}
	event := &amqp.EntryEvent{
		UserID:    l.UserID,
		Period:    l.Period.Internal(),
		EntryID:   e.ID,
		EntryType: string(e.Type),
		Action:    action,
		Timestamp: s.now(),
	}
	if err := s.events.PublishEntryEvent(ctx, event); err != nil {
		s.logger.Warn("entry event not published",
			log.FieldError, err.Error(),
			log.FieldEntryID, e.ID,
			"action", action)
	}
}

// finish recomputes derived fields and persists the ledger.
func (s *BudgetService) finish(l *core.Ledger) error {
	s.reports.Recompute(l, s.now())
	return s.store.Save(l)
}

// AddExpenseInput carries the fields of a new expense. Category and
// Timestamp are optional; a missing category falls back to the merchant
// rules and then to "other".
type AddExpenseInput struct {
	Amount      decimal.Decimal
	Description string
	Category    string
	Merchant    string
	Timestamp   string
}

// AddExpense records an expense. When the category is missing or resolves
// to "other", a learned merchant rule takes over; when the expense ends up
// in a real category, that pairing is learned as a rule. An existing rule
// is never overwritten here; explicit retraining goes through
// LearnMerchantCategory. The rule key falls back to the description when no
// merchant was given.
func (s *BudgetService) AddExpense(ctx context.Context, userID string, period core.Period, in AddExpenseInput) (*core.Entry, *core.Ledger, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, core.ErrInvalidAmount
	}

	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, nil, err
	}

	ruleKey := catalog.NormalizeMerchant(in.Merchant)
	if ruleKey == "" {
		ruleKey = catalog.NormalizeMerchant(in.Description)
	}
	category := s.catalog.Resolve(in.Category)
	if category == catalog.OtherID && ruleKey != "" {
		if ruled, ok := l.MerchantRules[ruleKey]; ok {
			category = ruled
		}
	}
	if category != catalog.OtherID && ruleKey != "" {
		if _, exists := l.MerchantRules[ruleKey]; !exists {
			l.MerchantRules[ruleKey] = category
			s.logger.Info("merchant rule learned",
				log.FieldUserID, l.UserID,
				log.FieldMerchant, ruleKey,
				log.FieldCategory, category)
		}
	}

	ts := in.Timestamp
	if _, ok := core.ParseTimestamp(ts); !ok {
		ts = core.Timestamp(s.now())
	}

	e := &core.Entry{
		ID:          core.NewEntryID(),
		Type:        core.EntryExpense,
		Amount:      core.Round2(in.Amount),
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Merchant:    strings.TrimSpace(in.Merchant),
		Timestamp:   ts,
	}
	l.Prepend(e)

	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, l, e, amqp.ActionCreated)
	return e, l, nil
}

// EntryUpdate carries optional field changes; nil pointers leave the field
// untouched.
type EntryUpdate struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	Merchant    *string
	Source      *string
	Timestamp   *string
}

func applyEntryUpdate(e *core.Entry, up EntryUpdate, resolve func(string) string) error {
	if up.Amount != nil {
		if !up.Amount.IsPositive() {
			return core.ErrInvalidAmount
		}
		e.Amount = core.Round2(*up.Amount)
	}
	if up.Description != nil {
		e.Description = strings.TrimSpace(*up.Description)
	}
	if up.Category != nil && resolve != nil {
		e.Category = resolve(*up.Category)
	}
	if up.Merchant != nil {
		e.Merchant = strings.TrimSpace(*up.Merchant)
	}
	if up.Source != nil {
		e.Source = strings.TrimSpace(*up.Source)
	}
	if up.Timestamp != nil {
		if _, ok := core.ParseTimestamp(*up.Timestamp); ok {
			e.Timestamp = *up.Timestamp
		}
	}
	return nil
}

// UpdateExpense edits an existing expense in place.
func (s *BudgetService) UpdateExpense(ctx context.Context, userID string, period core.Period, id string, up EntryUpdate) (*core.Entry, *core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, nil, err
	}
	e := l.FindExpense(id)
	if e == nil {
		return nil, nil, core.ErrNotFound
	}
	if err := applyEntryUpdate(e, up, s.catalog.Resolve); err != nil {
		return nil, nil, err
	}
	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, l, e, amqp.ActionUpdated)
	return e, l, nil
}

// DeleteExpense removes an expense. A missing id is ErrNotFound and leaves
// the file untouched.
func (s *BudgetService) DeleteExpense(ctx context.Context, userID string, period core.Period, id string) (*core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, err
	}
	e := l.FindExpense(id)
	if e == nil {
		return nil, core.ErrNotFound
	}
	l.RemoveExpense(id)
	if err := s.finish(l); err != nil {
		return nil, err
	}
	s.publish(ctx, l, e, amqp.ActionDeleted)
	return l, nil
}

// AddIncomeInput carries the fields of a new income.
type AddIncomeInput struct {
	Amount      decimal.Decimal
	Description string
	Source      string
	Timestamp   string
}

// AddIncome records an income into the history. Incomes live in the
// history alongside expenses; the separate incomes list is legacy-only and
// never written to.
func (s *BudgetService) AddIncome(ctx context.Context, userID string, period core.Period, in AddIncomeInput) (*core.Entry, *core.Ledger, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, core.ErrInvalidAmount
	}

	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, nil, err
	}

	ts := in.Timestamp
	if _, ok := core.ParseTimestamp(ts); !ok {
		ts = core.Timestamp(s.now())
	}
	e := &core.Entry{
		ID:          core.NewEntryID(),
		Type:        core.EntryIncome,
		Amount:      core.Round2(in.Amount),
		Description: strings.TrimSpace(in.Description),
		Source:      strings.TrimSpace(in.Source),
		Timestamp:   ts,
	}
	l.Prepend(e)

	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, l, e, amqp.ActionCreated)
	return e, l, nil
}

// UpdateIncome edits an income wherever it lives; an entry present in both
// the history and the legacy list is updated in both so they stay
// consistent.
func (s *BudgetService) UpdateIncome(ctx context.Context, userID string, period core.Period, id string, up EntryUpdate) (*core.Entry, *core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, nil, err
	}
	history, legacy := l.FindIncome(id)
	if history == nil && legacy == nil {
		return nil, nil, core.ErrNotFound
	}
	result := history
	if history != nil {
		if err := applyEntryUpdate(history, up, nil); err != nil {
			return nil, nil, err
		}
	}
	if legacy != nil {
		if err := applyEntryUpdate(legacy, up, nil); err != nil {
			return nil, nil, err
		}
		if result == nil {
			result = legacy
		}
	}
	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, l, result, amqp.ActionUpdated)
	return result, l, nil
}

// DeleteIncome removes an income from both storage locations.
func (s *BudgetService) DeleteIncome(ctx context.Context, userID string, period core.Period, id string) (*core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, err
	}
	history, legacy := l.FindIncome(id)
	if history == nil && legacy == nil {
		return nil, core.ErrNotFound
	}
	removed := history
	if removed == nil {
		removed = legacy
	}
	l.RemoveIncome(id)
	if err := s.finish(l); err != nil {
		return nil, err
	}
	s.publish(ctx, l, removed, amqp.ActionDeleted)
	return l, nil
}

// SetBudget sets the explicit overall budget. A zero budget reverts to the
// sum-of-category-budgets fallback.
func (s *BudgetService) SetBudget(ctx context.Context, userID string, period core.Period, amount decimal.Decimal) (*core.Ledger, error) {
	if amount.IsNegative() {
		return nil, core.ErrInvalidAmount
	}
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	l.Budget = core.Round2(amount)
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetCategoryBudget sets the budget for one category.
func (s *BudgetService) SetCategoryBudget(ctx context.Context, userID string, period core.Period, category string, amount decimal.Decimal) (*core.Ledger, error) {
	if amount.IsNegative() {
		return nil, core.ErrInvalidAmount
	}
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	l.CategoryBudgets[s.catalog.Resolve(category)] = core.Round2(amount)
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetSubcategoryBudget sets a budget line nested under a category.
func (s *BudgetService) SetSubcategoryBudget(ctx context.Context, userID string, period core.Period, category, subcategory string, amount decimal.Decimal) (*core.Ledger, error) {
	if amount.IsNegative() {
		return nil, core.ErrInvalidAmount
	}
	sub := catalog.Slugify(subcategory)
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	id := s.catalog.Resolve(category)
	if l.SubcategoryBudgets[id] == nil {
		l.SubcategoryBudgets[id] = map[string]decimal.Decimal{}
	}
	l.SubcategoryBudgets[id][sub] = core.Round2(amount)
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetBudgetMode stores the budgeting mode in the ledger settings.
func (s *BudgetService) SetBudgetMode(ctx context.Context, userID string, period core.Period, mode string) (*core.Ledger, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "standard"
	}
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	l.Settings["budget_mode"] = mode
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// ActivateCategory adds a category to the active icon set, optionally
// setting its budget in the same call. Activating an already active
// category is a no-op.
func (s *BudgetService) ActivateCategory(ctx context.Context, userID string, period core.Period, category string, budget *decimal.Decimal) (*core.Ledger, error) {
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, err
	}
	id := s.catalog.Resolve(category)
	active := false
	for _, existing := range l.ActiveIcons {
		if existing == id {
			active = true
			break
		}
	}
	if !active {
		l.ActiveIcons = append(l.ActiveIcons, id)
	}
	if budget != nil {
		if budget.IsNegative() {
			return nil, core.ErrInvalidAmount
		}
		l.CategoryBudgets[id] = core.Round2(*budget)
	}
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateGoal starts a new savings goal.
func (s *BudgetService) CreateGoal(ctx context.Context, userID string, period core.Period, name string, target decimal.Decimal) (*core.Goal, *core.Ledger, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, core.ErrEmptyName
	}
	if target.IsNegative() {
		return nil, nil, core.ErrInvalidAmount
	}
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return nil, nil, err
	}
	g := &core.Goal{
		ID:           core.NewEntryID(),
		Name:         name,
		TargetAmount: core.Round2(target),
		SavedAmount:  decimal.Zero,
		Status:       "active",
		CreatedAt:    core.Timestamp(s.now()),
	}
	l.Goals = append(l.Goals, g)
	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	return g, l, nil
}

// GoalUpdate carries optional goal field changes.
type GoalUpdate struct {
	Name         *string
	TargetAmount *decimal.Decimal
	SavedAmount  *decimal.Decimal
	Status       *string
}

// UpdateGoal edits an existing goal.
func (s *BudgetService) UpdateGoal(ctx context.Context, userID string, period core.Period, id string, up GoalUpdate) (*core.Goal, *core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, nil, err
	}
	g := l.FindGoal(id)
	if g == nil {
		return nil, nil, core.ErrNotFound
	}
	if up.Name != nil {
		name := strings.TrimSpace(*up.Name)
		if name == "" {
			return nil, nil, core.ErrEmptyName
		}
		g.Name = name
	}
	if up.TargetAmount != nil {
		if up.TargetAmount.IsNegative() {
			return nil, nil, core.ErrInvalidAmount
		}
		g.TargetAmount = core.Round2(*up.TargetAmount)
	}
	if up.SavedAmount != nil {
		if up.SavedAmount.IsNegative() {
			return nil, nil, core.ErrInvalidAmount
		}
		g.SavedAmount = core.Round2(*up.SavedAmount)
	}
	if up.Status != nil {
		g.Status = strings.TrimSpace(*up.Status)
	}
	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	return g, l, nil
}

// DeleteGoal removes a goal.
func (s *BudgetService) DeleteGoal(ctx context.Context, userID string, period core.Period, id string) (*core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, err
	}
	if !l.RemoveGoal(id) {
		return nil, core.ErrNotFound
	}
	if err := s.finish(l); err != nil {
		return nil, err
	}
	return l, nil
}

// Reclassify moves one expense to a different category.
func (s *BudgetService) Reclassify(ctx context.Context, userID string, period core.Period, id, category string) (*core.Entry, *core.Ledger, error) {
	l, err := s.store.Load(userID, period, false)
	if err != nil {
		return nil, nil, err
	}
	e := l.FindExpense(id)
	if e == nil {
		return nil, nil, core.ErrNotFound
	}
	e.Category = s.catalog.Resolve(category)
	if err := s.finish(l); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, l, e, amqp.ActionUpdated)
	return e, l, nil
}

// LearnMerchantCategory sets (or overwrites) the merchant rule and
// retroactively reclassifies every matching expense in the period. It
// returns the number of entries reclassified.
func (s *BudgetService) LearnMerchantCategory(ctx context.Context, userID string, period core.Period, merchant, category string) (int, *core.Ledger, error) {
	key := catalog.NormalizeMerchant(merchant)
	if key == "" {
		return 0, nil, core.ErrEmptyMerchant
	}
	l, err := s.store.Load(userID, period, true)
	if err != nil {
		return 0, nil, err
	}
	id := s.catalog.Resolve(category)
	l.MerchantRules[key] = id

	updated := 0
	for _, e := range l.Expenses() {
		candidate := e.Merchant
		if candidate == "" {
			candidate = e.Description
		}
		if catalog.NormalizeMerchant(candidate) != key || e.Category == id {
			continue
		}
		e.Category = id
		updated++
	}

	if err := s.finish(l); err != nil {
		return 0, nil, err
	}
	s.logger.Info("merchant rule trained",
		log.FieldUserID, l.UserID,
		log.FieldMerchant, key,
		log.FieldCategory, id,
		log.FieldCount, updated)
	return updated, l, nil
}
