package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists expense entries in a single SQLite table.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database handle.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// normalizeMonth trims surrounding whitespace; a blank month means "no filter".
func normalizeMonth(month string) string {
	return strings.TrimSpace(month)
}

// List returns entries whose date starts with month, newest first.
// An empty month lists everything.
func (r *SQLiteRepository) List(ctx context.Context, month string) ([]core.ExpenseEntry, error) {
	rows, err := r.queries.ListExpenses(ctx, normalizeMonth(month))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	entries := make([]core.ExpenseEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, r.toEntry(ctx, row))
	}
	return entries, nil
}

// MonthTotal sums the stored totals of the rows List would return for month.
func (r *SQLiteRepository) MonthTotal(ctx context.Context, month string) (int64, error) {
	total, err := r.queries.SumTotal(ctx, normalizeMonth(month))
	if err != nil {
		return 0, fmt.Errorf("sum expense totals: %w", err)
	}
	return total, nil
}

// Get returns the entry with id, or nil when it does not exist.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*core.ExpenseEntry, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	entry := r.toEntry(ctx, row)
	return &entry, nil
}

// Create sanitizes items, stores the entry and returns its new id.
func (r *SQLiteRepository) Create(ctx context.Context, date string, raw []core.RawItem) (int64, error) {
	items := core.SanitizeItems(raw)
	encoded, err := core.EncodeItems(items)
	if err != nil {
		return 0, err
	}
	total := core.ItemsTotal(items)

	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Date:      date,
		Items:     encoded,
		Total:     total,
		CreatedAt: r.now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	logger(ctx).InfoContext(ctx, "Expense saved to SQLite",
		log.NewFields().WithExpense(id, date, len(items), total).ToSlice()...)

	return id, nil
}

// Update replaces date, items and total of an existing entry. created_at is
// left untouched. matched is false when no row has id; that is not an error.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, date string, raw []core.RawItem) (bool, error) {
	items := core.SanitizeItems(raw)
	encoded, err := core.EncodeItems(items)
	if err != nil {
		return false, err
	}
	total := core.ItemsTotal(items)

	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:    id,
		Date:  date,
		Items: encoded,
		Total: total,
	})
	if err != nil {
		return false, fmt.Errorf("update expense %d: %w", id, err)
	}

	if n == 0 {
		logger(ctx).InfoContext(ctx, "Expense update matched no rows", log.FieldExpenseID, id)
		return false, nil
	}

	logger(ctx).InfoContext(ctx, "Expense updated in SQLite",
		log.NewFields().WithExpense(id, date, len(items), total).ToSlice()...)

	return true, nil
}

// Delete removes the entry with id. Deleting a missing id succeeds.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	logger(ctx).InfoContext(ctx, "Expense deleted from SQLite", log.FieldExpenseID, id, "rows", n)
	return nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

func (r *SQLiteRepository) toEntry(ctx context.Context, row ExpenseRow) core.ExpenseEntry {
	decoded := core.DecodeItems(row.Items)
	if decoded.Recovered {
		logger(ctx).WarnContext(ctx, "Stored items unreadable, returning empty item list",
			log.FieldExpenseID, row.ID,
			log.FieldOperation, log.OpDecode,
			log.FieldError, decoded.Err)
	}

	var createdAt time.Time
	if row.CreatedAt.Valid {
		createdAt = time.Unix(row.CreatedAt.Int64, 0).UTC()
	}

	return core.ExpenseEntry{
		ID:        row.ID,
		Date:      row.Date,
		Items:     decoded.Items,
		Total:     row.Total,
		CreatedAt: createdAt,
	}
}
