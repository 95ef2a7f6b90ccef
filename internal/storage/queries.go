package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements for the expenses table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ExpenseRow is an expenses row as stored, items still encoded.
type ExpenseRow struct {
	ID        int64
	Date      string
	Items     string
	Total     int64
	CreatedAt sql.NullInt64
}

const selectColumns = `SELECT id, date, items, total, created_at FROM expenses`

// Ordering is newest date first, then newest insertion; id breaks ties
// between rows created within the same second.
const orderBy = ` ORDER BY date DESC, created_at DESC, id DESC`

// The month filter is a literal prefix comparison; LIKE would treat % and _ as wildcards.
const prefixFilter = ` WHERE substr(date, 1, length(?)) = ?`

const listExpenses = selectColumns + orderBy

const listExpensesByPrefix = selectColumns + prefixFilter + orderBy

const getExpense = selectColumns + ` WHERE id = ? LIMIT 1`

// TOTAL never raises integer overflow the way SUM does; CAST saturates at the
// int64 bounds.
const sumTotal = `SELECT CAST(TOTAL(total) AS INTEGER) FROM expenses`

const sumTotalByPrefix = sumTotal + prefixFilter

const createExpense = `INSERT INTO expenses (date, items, total, created_at) VALUES (?, ?, ?, ?)`

const updateExpense = `UPDATE expenses SET date = ?, items = ?, total = ? WHERE id = ?`

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

type CreateExpenseParams struct {
	Date      string
	Items     string
	Total     int64
	CreatedAt int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExpense, arg.Date, arg.Items, arg.Total, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type UpdateExpenseParams struct {
	ID    int64
	Date  string
	Items string
	Total int64
}

// UpdateExpense returns the number of rows matched by id.
func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense, arg.Date, arg.Items, arg.Total, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i ExpenseRow
	err := row.Scan(&i.ID, &i.Date, &i.Items, &i.Total, &i.CreatedAt)
	return i, err
}

// ListExpenses returns every row, or only rows whose date starts with prefix when it is non-empty.
func (q *Queries) ListExpenses(ctx context.Context, prefix string) ([]ExpenseRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = q.db.QueryContext(ctx, listExpenses)
	} else {
		rows, err = q.db.QueryContext(ctx, listExpensesByPrefix, prefix, prefix)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.Date, &i.Items, &i.Total, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SumTotal aggregates the total column in SQL, filtered like ListExpenses.
func (q *Queries) SumTotal(ctx context.Context, prefix string) (int64, error) {
	var row *sql.Row
	if prefix == "" {
		row = q.db.QueryRowContext(ctx, sumTotal)
	} else {
		row = q.db.QueryRowContext(ctx, sumTotalByPrefix, prefix, prefix)
	}
	var total int64
	err := row.Scan(&total)
	return total, err
}
