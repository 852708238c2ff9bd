package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"expenseai/internal/core"

	_ "modernc.org/sqlite"
)

const expenseColumns = "id, date, category, amount, description"

// SQLiteRepository stores expenses in a single SQLite table. Dates are kept as
// yyyy-MM-dd text so range queries compare lexicographically; amounts as decimal text.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database connection is usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) FindAll(ctx context.Context) ([]core.Expense, error) {
	return r.query(ctx, "SELECT "+expenseColumns+" FROM expenses ORDER BY date, id")
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) FindByDate(ctx context.Context, date core.Date) ([]core.Expense, error) {
	return r.query(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE date = ? ORDER BY id", date.String())
}

func (r *SQLiteRepository) FindByDateRange(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	return r.query(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE date >= ? AND date <= ? ORDER BY date, id",
		from.String(), to.String())
}

func (r *SQLiteRepository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == 0 {
		res, err := r.db.ExecContext(ctx,
			"INSERT INTO expenses (date, category, amount, description) VALUES (?, ?, ?, ?)",
			e.Date.String(), string(e.Category), e.Amount.String(), e.Description)
		if err != nil {
			return core.Expense{}, fmt.Errorf("insert expense: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Expense{}, fmt.Errorf("read inserted id: %w", err)
		}
		e.ID = id

		slog.InfoContext(ctx, "Expense saved to SQLite",
			"id", e.ID,
			"date", e.Date.String(),
			"category", e.Category,
			"amount", e.Amount.String())
		return e, nil
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET date = ?, category = ?, amount = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		e.Date.String(), string(e.Category), e.Amount.String(), e.Description, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID)
	return e, nil
}

func (r *SQLiteRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM expenses WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check expense %d: %w", id, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, q string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e        core.Expense
		date     string
		category string
		amount   string
	)
	if err := s.Scan(&e.ID, &date, &category, &amount, &e.Description); err != nil {
		return core.Expense{}, err
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: stored date: %w", e.ID, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: stored amount %q: %w", e.ID, amount, err)
	}
	e.Date = d
	e.Category = core.Category(category)
	e.Amount = a
	return e, nil
}
