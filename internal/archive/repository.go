// Package archive mirrors ledger entries into SQLite. The JSON ledger
// files stay authoritative; the archive exists for durable history across
// period files and for ad-hoc querying.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"xubudget/internal/core"
	"xubudget/internal/log"
)

// Row is one archived ledger entry.
type Row struct {
	ID          string
	UserID      string
	Period      string
	Type        string
	Amount      string
	Description string
	Category    string
	Merchant    string
	Source      string
	Timestamp   string
}

// Repository is the SQLite-backed entry archive.
type Repository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewRepository opens (creating if needed) the archive database and brings
// its schema up to date.
func NewRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, logger: logger.WithComponent(log.ComponentArchive)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Upsert archives one entry, replacing any previous version of the same id.
func (r *Repository) Upsert(ctx context.Context, userID string, period core.Period, e *core.Entry) error {
	const query = `
		INSERT INTO entries (id, user_id, period, type, amount, description, category, merchant, source, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			description = excluded.description,
			category = excluded.category,
			merchant = excluded.merchant,
			source = excluded.source,
			timestamp = excluded.timestamp`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, userID, period.Internal(), string(e.Type), e.Amount.String(),
		e.Description, e.Category, e.Merchant, e.Source, e.Timestamp)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", e.ID, err)
	}

	r.logger.InfoContext(ctx, "entry archived",
		log.FieldOperation, log.OpArchive,
		log.FieldUserID, userID,
		log.FieldPeriod, period.Internal(),
		log.FieldEntryID, e.ID)
	return nil
}

// Delete removes an archived entry.
func (r *Repository) Delete(ctx context.Context, entryID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, entryID); err != nil {
		return fmt.Errorf("delete archived entry %s: %w", entryID, err)
	}
	return nil
}

// ListRecent returns the newest archived entries for a user across all
// periods.
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, user_id, period, type, amount, description, category, merchant, source, timestamp
		FROM entries
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived entries: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.UserID, &row.Period, &row.Type, &row.Amount,
			&row.Description, &row.Category, &row.Merchant, &row.Source, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("scan archived entry: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountByUser returns the number of archived entries for a user.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count archived entries: %w", err)
	}
	return count, nil
}
