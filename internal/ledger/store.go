// Package ledger persists per-user, per-period financial state as JSON
// files and performs the monthly rollover that seeds a new period from the
// previous one.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xubudget/internal/catalog"
	"xubudget/internal/core"
	"xubudget/internal/log"
	"xubudget/internal/report"
)

// DefaultUserID is used when a request carries no user identity.
const DefaultUserID = "default"

// Store reads and writes ledger files under a single directory. File names
// follow "<user>_<YYYY_MM>.json"; a bare "<user>.json" is the legacy
// pre-period format, still readable as a rollover template.
//
// Writes to the same file are serialized with a per-path mutex, so two
// users never contend with each other.
type Store struct {
	dir      string
	catalog  *catalog.Catalog
	reports  *report.Aggregator
	currency string
	logger   *log.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the states directory if needed and returns a store.
func NewStore(dir string, cat *catalog.Catalog, reports *report.Aggregator, currency string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create states dir: %w", err)
	}
	if currency == "" {
		currency = "CAD"
	}
	return &Store{
		dir:      dir,
		catalog:  cat,
		reports:  reports,
		currency: currency,
		logger:   logger.WithComponent(log.ComponentLedger),
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

var unsafeUserRunes = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeUserID restricts a user id to file-name-safe characters.
func SanitizeUserID(raw string) string {
	id := unsafeUserRunes.ReplaceAllString(strings.TrimSpace(raw), "_")
	if id == "" {
		return DefaultUserID
	}
	return id
}

func (s *Store) statePath(userID string, period core.Period) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", SanitizeUserID(userID), period.Internal()))
}

func (s *Store) legacyPath(userID string) string {
	return filepath.Join(s.dir, SanitizeUserID(userID)+".json")
}

func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

// Load returns the ledger for one user and period.
//
// When the file exists it is read, normalized and recomputed; a corrupt
// file degrades to an empty ledger rather than failing the request. When
// the file is missing and createIfMissing is set, a new ledger is created
// by carrying forward configuration from the best available template:
// the immediately preceding period's file, then the latest existing period
// file, then the legacy single-file ledger, then nothing. The new file is
// written before returning. Without createIfMissing a missing period is
// ErrNotFound.
func (s *Store) Load(userID string, period core.Period, createIfMissing bool) (*core.Ledger, error) {
	path := s.statePath(userID, period)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		l := s.decode(data, path)
		s.normalize(l, userID, period)
		s.reports.Recompute(l, s.now())
		return l, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	if !createIfMissing {
		return nil, fmt.Errorf("period %s for user %s: %w", period.External(), userID, core.ErrNotFound)
	}

	l := s.rollover(userID, period)
	s.normalize(l, userID, period)
	s.reports.Recompute(l, s.now())
	if err := s.Save(l); err != nil {
		return nil, err
	}
	return l, nil
}

// rollover builds the initial ledger for a period that has no file yet.
func (s *Store) rollover(userID string, period core.Period) *core.Ledger {
	template, templatePeriod := s.findTemplate(userID, period)
	if template == nil {
		s.logger.Info("starting fresh ledger",
			log.FieldOperation, log.OpRollover,
			log.FieldUserID, userID,
			log.FieldPeriod, period.Internal())
		return &core.Ledger{UserID: SanitizeUserID(userID), Currency: s.currency, Period: period}
	}

	l := template.CloneConfig()
	l.Period = period
	l.PreviousPeriod = templatePeriod
	l.PeriodStartedAt = core.Timestamp(s.now())

	templateLabel := "legacy"
	if templatePeriod != nil {
		templateLabel = templatePeriod.Internal()
	}
	s.logger.Info("carried ledger forward",
		log.FieldOperation, log.OpRollover,
		log.FieldUserID, userID,
		log.FieldPeriod, period.Internal(),
		"template_period", templateLabel)
	return l
}

// findTemplate locates the best existing state to seed a new period from,
// returning the template's own period so the new ledger can link back to
// it. The legacy single-file ledger carries no period, so its link is nil.
func (s *Store) findTemplate(userID string, period core.Period) (*core.Ledger, *core.Period) {
	if prev, ok := period.Previous(); ok {
		if l := s.readFile(s.statePath(userID, prev)); l != nil {
			return l, &prev
		}
	}

	periods, err := s.ListPeriods(userID)
	if err == nil {
		for i := len(periods) - 1; i >= 0; i-- {
			if !periods[i].Before(period) {
				continue
			}
			if l := s.readFile(s.statePath(userID, periods[i])); l != nil {
				p := periods[i]
				return l, &p
			}
		}
	}

	if l := s.readFile(s.legacyPath(userID)); l != nil {
		if !l.Period.IsZero() && l.Period.Before(period) {
			p := l.Period
			return l, &p
		}
		return l, nil
	}
	return nil, nil
}

func (s *Store) readFile(path string) *core.Ledger {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var l core.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		s.logger.Warn("unreadable ledger file skipped",
			log.FieldFile, path, log.FieldError, err.Error())
		return nil
	}
	return &l
}

func (s *Store) decode(data []byte, path string) *core.Ledger {
	var l core.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		s.logger.Warn("corrupt ledger file, starting empty",
			log.FieldFile, path, log.FieldError, err.Error())
		return &core.Ledger{}
	}
	return &l
}

// normalize fills schema defaults so every ledger, whatever file vintage it
// was read from, has the full current shape.
func (s *Store) normalize(l *core.Ledger, userID string, period core.Period) {
	l.UserID = SanitizeUserID(userID)
	l.Period = period
	if l.Currency == "" {
		l.Currency = s.currency
	}
	if l.CategoryBudgets == nil {
		l.CategoryBudgets = map[string]decimal.Decimal{}
	}
	if l.SubcategoryBudgets == nil {
		l.SubcategoryBudgets = map[string]map[string]decimal.Decimal{}
	}
	if l.Settings == nil {
		l.Settings = map[string]any{}
	}
	if _, ok := l.Settings["budget_mode"]; !ok {
		l.Settings["budget_mode"] = "standard"
	}
	if l.MerchantRules == nil {
		l.MerchantRules = map[string]string{}
	}
	if l.ActiveIcons == nil {
		l.ActiveIcons = []string{}
	}
	if l.PeriodStartedAt == "" {
		l.PeriodStartedAt = core.Timestamp(s.now())
	}

	for _, e := range l.History {
		s.normalizeEntry(e, core.EntryExpense)
	}
	for _, e := range l.Incomes {
		s.normalizeEntry(e, core.EntryIncome)
	}
	for _, g := range l.Goals {
		if g.ID == "" {
			g.ID = core.NewEntryID()
		}
		if g.Status == "" {
			g.Status = "active"
		}
		if g.CreatedAt == "" {
			g.CreatedAt = core.Timestamp(s.now())
		}
	}
}

func (s *Store) normalizeEntry(e *core.Entry, fallback core.EntryType) {
	if e.ID == "" {
		e.ID = core.NewEntryID()
	}
	if e.Type == "" {
		e.Type = fallback
	}
	if e.Timestamp == "" {
		e.Timestamp = core.Timestamp(s.now())
	}
	if e.Type == core.EntryExpense {
		e.Category = s.catalog.Resolve(e.Category)
	}
}

// Save writes the ledger to its period file. Concurrent saves of the same
// file are serialized; a write failure is returned to the caller because a
// mutation that did not persist must not be reported as applied.
func (s *Store) Save(l *core.Ledger) error {
	path := s.statePath(l.UserID, l.Period)
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return nil
}

// ListPeriods returns every period a ledger file exists for, oldest first.
// The legacy single-file ledger is not a period and is excluded.
func (s *Store) ListPeriods(userID string) ([]core.Period, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list states dir: %w", err)
	}

	prefix := SanitizeUserID(userID) + "_"
	var periods []core.Period
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		p, err := core.ParsePeriodInternal(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
		if err != nil {
			continue
		}
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}

// HasPeriod reports whether a ledger file exists for the period.
func (s *Store) HasPeriod(userID string, period core.Period) bool {
	_, err := os.Stat(s.statePath(userID, period))
	return err == nil
}
