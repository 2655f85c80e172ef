package services

import (
	"context"
	"fmt"

	"xubudget/internal/amqp"
	"xubudget/internal/archive"
	"xubudget/internal/core"
	"xubudget/internal/ledger"
	"xubudget/internal/log"
)

// Archiver consumes entry events and mirrors the referenced entries into
// the SQLite archive. It reads ledger files but never writes them.
type Archiver struct {
	store  *ledger.Store
	repo   *archive.Repository
	logger *log.Logger
}

func NewArchiver(store *ledger.Store, repo *archive.Repository, logger *log.Logger) *Archiver {
	return &Archiver{store: store, repo: repo, logger: logger.WithComponent(log.ComponentWorker)}
}

// Handle processes one entry event. Deleted entries are removed from the
// archive; created and updated entries are re-read from the ledger file
// and upserted. An entry already gone from the ledger is treated as
// deleted, not an error, because events can arrive after later mutations.
func (a *Archiver) Handle(ctx context.Context, event *amqp.EntryEvent) error {
	if event.Action == amqp.ActionDeleted {
		return a.repo.Delete(ctx, event.EntryID)
	}

	period, err := core.ParsePeriodInternal(event.Period)
	if err != nil {
		return fmt.Errorf("event period %q: %w", event.Period, err)
	}

	l, err := a.store.Load(event.UserID, period, false)
	if err != nil {
		return fmt.Errorf("load ledger for event: %w", err)
	}

	e := a.findEntry(l, event)
	if e == nil {
		a.logger.Warn("event entry no longer in ledger, removing from archive",
			log.FieldEntryID, event.EntryID,
			log.FieldUserID, event.UserID,
			log.FieldPeriod, event.Period)
		return a.repo.Delete(ctx, event.EntryID)
	}
	return a.repo.Upsert(ctx, l.UserID, l.Period, e)
}

func (a *Archiver) findEntry(l *core.Ledger, event *amqp.EntryEvent) *core.Entry {
	if event.EntryType == string(core.EntryIncome) {
		history, legacy := l.FindIncome(event.EntryID)
		if history != nil {
			return history
		}
		return legacy
	}
	return l.FindExpense(event.EntryID)
}
